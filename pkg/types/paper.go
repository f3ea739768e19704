// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Paper is one candidate paper returned by the search stage. Papers have no
// identity beyond their position in ResearchContext.SearchResults.
type Paper struct {
	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary as returned by the source.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL is the canonical landing page (the arXiv entry id, a DOI URL, ...).
	URL string `json:"url" yaml:"url"`

	// Published is the publication timestamp as an ISO-8601 string.
	Published string `json:"published" yaml:"published"`
}

// Summary is the summarization stage output for the paper at the same index
// in ResearchContext.SearchResults. An empty Summary string marks an item
// whose completion was rate limited.
type Summary struct {
	// Title restates the paper title. It is not a unique key.
	Title string `json:"title" yaml:"title"`

	// Summary is the generated text, or "" when the provider rate limited us.
	Summary string `json:"summary" yaml:"summary"`

	// Model is the completion model identifier used for this item.
	Model string `json:"model" yaml:"model"`

	// PromptHash is the content key of the rendered prompt (hex SHA-256).
	PromptHash string `json:"prompt_hash" yaml:"prompt_hash"`
}

// Trend is a pattern found by trend analysis. Reserved; no stage writes it yet.
type Trend struct {
	Term   string `json:"term" yaml:"term"`
	Period string `json:"period" yaml:"period"`
	Count  int    `json:"count" yaml:"count"`
}

// GraphNode is a knowledge graph node. Reserved; no stage writes it yet.
type GraphNode struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Kind  string `json:"kind" yaml:"kind"`
}

// CitationLink relates two graph nodes or papers. Reserved; no stage writes it yet.
type CitationLink struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}
