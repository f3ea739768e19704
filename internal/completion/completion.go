// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion adapts text-completion APIs behind one interface. The
// summarization stage sends a single user message and reads back plain text;
// provider rate limits are reported as ErrRateLimited so callers can tell
// them apart from every other failure.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrRateLimited marks a completion that the provider refused because of
// rate or quota limits. Test with errors.Is.
var ErrRateLimited = errors.New("completion rate limited")

// Request is one completion call.
type Request struct {
	Model           string
	Prompt          string
	MaxOutputTokens int
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is an error response from a completion provider.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimited reports whether the provider rejected the call for rate or
// quota reasons.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Type == "rate_limit_error"
}

// Unwrap lets errors.Is(err, ErrRateLimited) match rate-limit responses.
func (e *APIError) Unwrap() error {
	if e.RateLimited() {
		return ErrRateLimited
	}
	return nil
}

// New returns the Completer selected by cfg.Provider. client may be nil.
func New(cfg types.AIConfig, client *http.Client) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", cfg.Provider)
	}
	if client == nil {
		client = http.DefaultClient
	}
	switch cfg.Provider {
	case types.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, client), nil
	case types.ProviderAnthropic:
		return &Anthropic{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
