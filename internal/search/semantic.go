// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,url,year,publicationDate"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API in its relevance order.
func (b *SemanticScholarBackend) Search(ctx context.Context, topic string, maxResults int) ([]types.Paper, error) {
	q := strings.TrimSpace(topic)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]types.Paper, 0, len(sr.Data))
	for _, paper := range sr.Data {
		if len(papers) == maxResults {
			break
		}
		p := types.Paper{
			Title:    paper.Title,
			Authors:  []string{},
			Abstract: paper.Abstract,
			URL:      semanticURL(paper),
		}
		for _, a := range paper.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		if paper.PublicationDate != "" {
			p.Published = paper.PublicationDate
		} else if paper.Year > 0 {
			p.Published = fmt.Sprintf("%04d-01-01", paper.Year)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// semanticURL prefers the arXiv abstract page, then the DOI, then the
// Semantic Scholar page.
func semanticURL(p semanticPaper) string {
	switch {
	case p.ExternalIDs.ArXiv != "":
		return "http://arxiv.org/abs/" + p.ExternalIDs.ArXiv
	case p.ExternalIDs.DOI != "":
		return "https://doi.org/" + p.ExternalIDs.DOI
	default:
		return p.URL
	}
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	URL             string              `json:"url"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
