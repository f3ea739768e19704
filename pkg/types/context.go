// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures threaded through the
// research pipeline: the ResearchContext, its paper and summary records, and
// the per-stage configuration.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// SchemaVersion is the version of the serialized ResearchContext document.
const SchemaVersion = 1

// ErrUnsupportedSchema is returned when a serialized context carries a
// schema_version this build does not understand.
var ErrUnsupportedSchema = errors.New("unsupported research context schema version")

// ResearchContext carries all state for one pipeline run. The orchestrator
// creates it with only the topic set; each stage replaces its own field
// wholesale and never touches another stage's field.
//
// Field contents are not validated. The context is an internal transport
// between stages, not a validated boundary.
type ResearchContext struct {
	topic string

	// QueryRefined is reserved for query-rewriting stages. Never set here.
	QueryRefined bool

	// SearchResults is written once by the search stage, in relevance order.
	SearchResults []Paper

	// SelectedPapers is reserved for a relevance-filtering stage.
	SelectedPapers []Paper

	// Summaries is written once by the summarization stage and always has
	// the same length and order as SearchResults.
	Summaries []Summary

	// TemporalTrends is reserved for a trend-analysis stage.
	TemporalTrends []Trend

	// KnowledgeGraphNodes is reserved for a knowledge-graph stage.
	KnowledgeGraphNodes []GraphNode

	// CitationLinks is reserved for a knowledge-graph stage.
	CitationLinks []CitationLink

	// CacheHash is reserved for a content-addressed run cache. Never computed.
	CacheHash string
}

// NewResearchContext returns a zero-state context for topic.
func NewResearchContext(topic string) *ResearchContext {
	return &ResearchContext{
		topic:               topic,
		SearchResults:       []Paper{},
		SelectedPapers:      []Paper{},
		Summaries:           []Summary{},
		TemporalTrends:      []Trend{},
		KnowledgeGraphNodes: []GraphNode{},
		CitationLinks:       []CitationLink{},
	}
}

// Topic returns the topic the context was created for.
func (rc *ResearchContext) Topic() string { return rc.topic }

// contextDocument is the versioned wire form of a ResearchContext. JSON,
// YAML and the generic map form all use these field names.
type contextDocument struct {
	SchemaVersion       int            `json:"schema_version" yaml:"schema_version"`
	Topic               string         `json:"topic" yaml:"topic"`
	QueryRefined        bool           `json:"query_refined" yaml:"query_refined"`
	SearchResults       []Paper        `json:"search_results" yaml:"search_results"`
	SelectedPapers      []Paper        `json:"selected_papers" yaml:"selected_papers"`
	Summaries           []Summary      `json:"summaries" yaml:"summaries"`
	TemporalTrends      []Trend        `json:"temporal_trends" yaml:"temporal_trends"`
	KnowledgeGraphNodes []GraphNode    `json:"knowledge_graph_nodes" yaml:"knowledge_graph_nodes"`
	CitationLinks       []CitationLink `json:"citation_links" yaml:"citation_links"`
	CacheHash           string         `json:"cache_hash" yaml:"cache_hash"`
}

func (rc *ResearchContext) document() contextDocument {
	return contextDocument{
		SchemaVersion:       SchemaVersion,
		Topic:               rc.topic,
		QueryRefined:        rc.QueryRefined,
		SearchResults:       rc.SearchResults,
		SelectedPapers:      rc.SelectedPapers,
		Summaries:           rc.Summaries,
		TemporalTrends:      rc.TemporalTrends,
		KnowledgeGraphNodes: rc.KnowledgeGraphNodes,
		CitationLinks:       rc.CitationLinks,
		CacheHash:           rc.CacheHash,
	}
}

func (rc *ResearchContext) apply(doc contextDocument) error {
	// A missing schema_version means the document predates versioning.
	if doc.SchemaVersion != 0 && doc.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSchema, doc.SchemaVersion)
	}
	*rc = ResearchContext{
		topic:               doc.Topic,
		QueryRefined:        doc.QueryRefined,
		SearchResults:       doc.SearchResults,
		SelectedPapers:      doc.SelectedPapers,
		Summaries:           doc.Summaries,
		TemporalTrends:      doc.TemporalTrends,
		KnowledgeGraphNodes: doc.KnowledgeGraphNodes,
		CitationLinks:       doc.CitationLinks,
		CacheHash:           doc.CacheHash,
	}
	return nil
}

// MarshalJSON encodes the context as a versioned document.
func (rc *ResearchContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(rc.document())
}

// UnmarshalJSON decodes a versioned document. Unknown keys are rejected so
// that a misspelled field name fails loudly instead of being dropped.
func (rc *ResearchContext) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc contextDocument
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decoding research context: %w", err)
	}
	return rc.apply(doc)
}

// MarshalYAML encodes the context as a versioned YAML document.
func (rc *ResearchContext) MarshalYAML() (interface{}, error) {
	return rc.document(), nil
}

// UnmarshalYAML decodes a versioned YAML document.
func (rc *ResearchContext) UnmarshalYAML(node *yaml.Node) error {
	var doc contextDocument
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("decoding research context: %w", err)
	}
	return rc.apply(doc)
}

// ToMap serializes the context to a generic string-keyed map. Strings go
// through encoding/json, so invalid UTF-8 is replaced with U+FFFD and only
// valid UTF-8 text round-trips exactly. The HTTP and CLI front ends reject
// topics that are not valid UTF-8.
func (rc *ResearchContext) ToMap() (map[string]any, error) {
	data, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("marshaling research context: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("building research context map: %w", err)
	}
	return m, nil
}

// FromMap reconstructs a context from the map produced by ToMap.
// FromMap(ToMap(x)) reproduces every field of x.
func FromMap(m map[string]any) (*ResearchContext, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling research context map: %w", err)
	}
	rc := &ResearchContext{}
	if err := rc.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return rc, nil
}
