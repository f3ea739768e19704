// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Note     string    `yaml:"note,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	DOI      string    `yaml:"DOI,omitempty"`
	URL      string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes papers as a CSL-YAML list to w. When summaries line up
// with papers, each non-empty summary is carried in the note field.
func FormatCSL(papers []types.Paper, summaries []types.Summary, w io.Writer) error {
	items := make([]CSLItem, len(papers))
	for i, p := range papers {
		items[i] = toCSLItem(p)
		if i < len(summaries) {
			items[i].Note = summaries[i].Summary
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Paper to a CSLItem. The item id is the DOI or arXiv
// identifier when the URL carries one, otherwise the URL itself.
func toCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:       p.URL,
		Type:     "article",
		Title:    p.Title,
		Abstract: p.Abstract,
		URL:      p.URL,
	}

	for _, a := range p.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if d, ok := parsePublished(p.Published); ok {
		item.Issued = &CSLDate{
			DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}},
		}
	}

	switch {
	case strings.HasPrefix(p.URL, "https://doi.org/"):
		item.DOI = strings.TrimPrefix(p.URL, "https://doi.org/")
		item.ID = item.DOI
	case strings.Contains(p.URL, "arxiv.org/abs/"):
		item.ID = "arXiv:" + p.URL[strings.Index(p.URL, "arxiv.org/abs/")+len("arxiv.org/abs/"):]
	}

	return item
}

// parsePublished accepts the RFC 3339 timestamps and bare dates produced by
// the backends.
func parsePublished(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
