// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexBackend queries the OpenAlex API.
type OpenAlexBackend struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return "openalex" }

// Search queries the OpenAlex API. OpenAlex sorts by relevance whenever a
// search term is given.
func (b *OpenAlexBackend) Search(ctx context.Context, topic string, maxResults int) ([]types.Paper, error) {
	searchText := strings.TrimSpace(topic)
	if searchText == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {searchText},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	papers := make([]types.Paper, 0, len(oar.Results))
	for _, work := range oar.Results {
		if len(papers) == maxResults {
			break
		}
		p := types.Paper{
			Title:    work.Title,
			Authors:  []string{},
			Abstract: reconstructAbstract(work.AbstractInvertedIndex),
			URL:      work.ID,
		}
		// DOI links resolve to the publisher; prefer them over the OpenAlex ID.
		if work.DOI != "" {
			p.URL = work.DOI
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				p.Authors = append(p.Authors, authorship.Author.DisplayName)
			}
		}

		if work.PublicationDate != "" {
			p.Published = work.PublicationDate
		} else if work.PublicationYear > 0 {
			p.Published = fmt.Sprintf("%04d-01-01", work.PublicationYear)
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}
