// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestAPIErrorRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want bool
	}{
		{"429", &APIError{Provider: "openai", StatusCode: 429}, true},
		{"rate_limit_error type", &APIError{Provider: "anthropic", StatusCode: 529, Type: "rate_limit_error"}, true},
		{"server error", &APIError{Provider: "openai", StatusCode: 500, Type: "server_error"}, false},
		{"auth", &APIError{Provider: "openai", StatusCode: 401, Type: "invalid_request_error"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.RateLimited())
			wrapped := fmt.Errorf("summarizing: %w", tt.err)
			assert.Equal(t, tt.want, errors.Is(wrapped, ErrRateLimited))

			var apiErr *APIError
			require.True(t, errors.As(wrapped, &apiErr))
			assert.Equal(t, tt.err.StatusCode, apiErr.StatusCode)
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	e := &APIError{Provider: "openai", StatusCode: 429, Type: "rate_limit_error", Message: "slow down"}
	assert.Equal(t, "openai: API error (status 429, type rate_limit_error): slow down", e.Error())

	e = &APIError{Provider: "anthropic", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "anthropic: API error (status 500): boom", e.Error())
}

func TestNew(t *testing.T) {
	c, err := New(types.AIConfig{Provider: types.ProviderOpenAI, Model: "m", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)

	c, err = New(types.AIConfig{Provider: types.ProviderAnthropic, Model: "m", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, c)

	_, err = New(types.AIConfig{Provider: types.ProviderOpenAI, Model: "m"}, nil)
	assert.ErrorContains(t, err, "no API key")

	_, err = New(types.AIConfig{Provider: "cohere", Model: "m", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "unknown completion provider")
}

func openAIResponse(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-3.5-turbo",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, content)
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openAIResponse("  A concise summary.\n"))
	}))
	defer ts.Close()

	c := NewOpenAI("sk-test", ts.URL, ts.Client())
	out, err := c.Complete(context.Background(), Request{Model: "gpt-3.5-turbo", Prompt: "Summarize X", MaxOutputTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "A concise summary.", out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-3.5-turbo", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "Summarize X", msg["content"])
}

func TestOpenAIRateLimit(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
	}))
	defer ts.Close()

	c := NewOpenAI("sk-test", ts.URL, ts.Client())
	_, err := c.Complete(context.Background(), Request{Model: "gpt-3.5-turbo", Prompt: "p", MaxOutputTokens: 16})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 1, calls, "the SDK must not retry on its own")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "openai", apiErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestOpenAIServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "bad model", "type": "invalid_request_error"}}`)
	}))
	defer ts.Close()

	c := NewOpenAI("sk-test", ts.URL, ts.Client())
	_, err := c.Complete(context.Background(), Request{Model: "nope", Prompt: "p", MaxOutputTokens: 16})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestOpenAINoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`)
	}))
	defer ts.Close()

	c := NewOpenAI("sk-test", ts.URL, ts.Client())
	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	assert.ErrorContains(t, err, "no choices")
}

func TestAnthropicComplete(t *testing.T) {
	var got anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "Part one. "}, {"type": "tool_use"}, {"type": "text", "text": "Part two."}]}`)
	}))
	defer ts.Close()

	c := &Anthropic{APIKey: "ak-test", BaseURL: ts.URL, Client: ts.Client()}
	out, err := c.Complete(context.Background(), Request{Model: "claude-haiku", Prompt: "Summarize Y", MaxOutputTokens: 128})
	require.NoError(t, err)

	assert.Equal(t, "Part one. Part two.", out)
	assert.Equal(t, "claude-haiku", got.Model)
	assert.Equal(t, 128, got.MaxTokens)
	assert.Equal(t, []anthropicMessage{{Role: "user", Content: "Summarize Y"}}, got.Messages)
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		wantType    string
	}{
		{"429", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`, true, "rate_limit_error"},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`, false, "overloaded_error"},
		{"plain text body", http.StatusInternalServerError, `upstream failure`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			c := &Anthropic{APIKey: "k", BaseURL: ts.URL, Client: ts.Client()}
			_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p", MaxOutputTokens: 8})
			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, errors.Is(err, ErrRateLimited))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantType, apiErr.Type)
		})
	}
}

func TestAnthropicNoText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"content": []}`)
	}))
	defer ts.Close()

	c := &Anthropic{APIKey: "k", BaseURL: ts.URL, Client: ts.Client()}
	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p", MaxOutputTokens: 8})
	assert.ErrorContains(t, err, "no text content")
}
