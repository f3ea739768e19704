// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivBackend queries the arXiv API.
type ArxivBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search queries the arXiv API across all fields, sorted by relevance.
func (b *ArxivBackend) Search(ctx context.Context, topic string, maxResults int) ([]types.Paper, error) {
	q := buildArxivQuery(topic)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if len(papers) == maxResults {
			break
		}
		p := types.Paper{
			Title:     collapseSpace(entry.Title),
			Authors:   []string{},
			Abstract:  strings.TrimSpace(entry.Summary),
			URL:       strings.TrimSpace(entry.ID),
			Published: normalizeTimestamp(entry.Published),
		}
		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// buildArxivQuery searches every field for the topic's terms.
func buildArxivQuery(topic string) string {
	terms := strings.Fields(topic)
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, " ")
}

// normalizeTimestamp returns s as an RFC 3339 UTC timestamp when it parses
// and unchanged otherwise.
func normalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
