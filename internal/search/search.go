// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries an academic search API for a topic and records the
// results on the research context.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Backend searches a single academic API. Results come back in the
// backend's relevance order and are never reordered or deduplicated.
type Backend interface {
	Name() string
	Search(ctx context.Context, topic string, maxResults int) ([]types.Paper, error)
}

// NewBackend returns the backend selected by cfg.Backend. When
// cfg.RequestsPerSecond is positive, calls are paced by a token bucket.
func NewBackend(cfg types.SearchConfig, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var b Backend
	switch cfg.Backend {
	case types.BackendArxiv:
		b = &ArxivBackend{Client: client, UserAgent: cfg.UserAgent}
	case types.BackendOpenAlex:
		b = &OpenAlexBackend{Client: client, UserAgent: cfg.UserAgent, Email: cfg.OpenAlexEmail}
	case types.BackendSemanticScholar:
		b = &SemanticScholarBackend{Client: client, UserAgent: cfg.UserAgent, APIKey: cfg.SemanticScholarAPIKey}
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}

	if cfg.RequestsPerSecond > 0 {
		b = Paced(b, cfg.RequestsPerSecond)
	}
	return b, nil
}

// pacedBackend waits on a token bucket before each call.
type pacedBackend struct {
	Backend
	limiter *rate.Limiter
}

// Paced wraps b so that calls are spread at most perSecond apart. Pacing
// only delays; it never retries.
func Paced(b Backend, perSecond float64) Backend {
	return &pacedBackend{Backend: b, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (p *pacedBackend) Search(ctx context.Context, topic string, maxResults int) ([]types.Paper, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for %s rate limit: %w", p.Name(), err)
	}
	return p.Backend.Search(ctx, topic, maxResults)
}

// FormatTable writes papers, and their summaries when present, as a
// human-readable table to w.
func FormatTable(papers []types.Paper, summaries []types.Summary, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s\n", "Rank", "Title", "Authors", "Published")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, p := range papers {
		published := p.Published
		if len(published) > 10 {
			published = published[:10]
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s\n",
			i+1, truncate(p.Title, 60), formatAuthors(p.Authors), published)
		if i < len(summaries) {
			if s := summaries[i].Summary; s != "" {
				fmt.Fprintf(w, "      %s\n", s)
			} else {
				fmt.Fprintln(w, "      (no summary)")
			}
		}
	}

	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
