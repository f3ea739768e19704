// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

type fakePipeline struct {
	err     error
	panics  bool
	topics  []string
	parents []string
}

func (p *fakePipeline) RunWithin(_ context.Context, parent tracking.Run, topic string) (*types.ResearchContext, error) {
	p.topics = append(p.topics, topic)
	if parent != nil {
		p.parents = append(p.parents, parent.ID())
	}
	if p.panics {
		panic("summarizer exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	rc := types.NewResearchContext(topic)
	rc.SearchResults = []types.Paper{{Title: "Paper A", Authors: []string{"Ada"}, URL: "http://x/a"}}
	rc.Summaries = []types.Summary{{Title: "Paper A", Summary: "About A.", Model: "m", PromptHash: "h"}}
	return rc, nil
}

func newTestServer(t *testing.T, p Pipeline, opts ...Option) (*Server, *tracking.MemoryStore) {
	t.Helper()
	store := tracking.NewMemoryStore()
	cfg := types.DefaultConfig().Server
	return New(cfg, p, store, opts...), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakePipeline{})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunSuccess(t *testing.T) {
	p := &fakePipeline{}
	s, store := newTestServer(t, p)

	rec := do(t, s.Handler(), http.MethodPost, "/run", `{"topic":"graph neural networks"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got types.ResearchContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "graph neural networks", got.Topic())
	require.Len(t, got.Summaries, 1)
	assert.Equal(t, "About A.", got.Summaries[0].Summary)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"topic", "query_refined", "search_results", "selected_papers", "summaries",
		"temporal_trends", "knowledge_graph_nodes", "citation_links", "cache_hash"} {
		assert.Contains(t, raw, key)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, strings.HasPrefix(runs[0].Name, "request_"), runs[0].Name)
	assert.Equal(t, tracking.StatusFinished, runs[0].Status)
	assert.Equal(t, []string{runs[0].ID}, p.parents)
}

func TestRunBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty topic", body: `{"topic":""}`},
		{name: "blank topic", body: `{"topic":"   "}`},
		{name: "missing topic", body: `{}`},
		{name: "malformed json", body: `{"topic":`},
		{name: "empty body", body: ``},
		{name: "invalid utf-8 topic", body: "{\"topic\":\"topic\xff\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			s, _ := newTestServer(t, p)
			rec := do(t, s.Handler(), http.MethodPost, "/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, p.topics, "pipeline must not run")
		})
	}
}

func TestRunPipelineFailureHidesDetail(t *testing.T) {
	var logs bytes.Buffer
	p := &fakePipeline{err: errors.New("summarize stage: secret upstream detail")}
	s, store := newTestServer(t, p, WithLogger(zerolog.New(&logs)))

	rec := do(t, s.Handler(), http.MethodPost, "/run", `{"topic":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret upstream detail")
	assert.Contains(t, logs.String(), "secret upstream detail")

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, tracking.StatusFailed, runs[0].Status)
}

func TestRunMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &fakePipeline{})
	rec := do(t, s.Handler(), http.MethodGet, "/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &fakePipeline{})

	t.Run("simple request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://app.example")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/run", nil)
		req.Header.Set("Origin", "http://app.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("no origin", func(t *testing.T) {
		rec := do(t, s.Handler(), http.MethodGet, "/health", "")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRunsEndpoints(t *testing.T) {
	store := tracking.NewMemoryStore()
	s := New(types.DefaultConfig().Server, &fakePipeline{}, store, WithRunReader(store))

	rec := do(t, s.Handler(), http.MethodPost, "/run", `{"topic":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []tracking.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)

	rec = do(t, s.Handler(), http.MethodGet, "/runs/"+list.Runs[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one tracking.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, list.Runs[0].ID, one.ID)

	rec = do(t, s.Handler(), http.MethodGet, "/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsEndpointsDisabledWithoutReader(t *testing.T) {
	s, _ := newTestServer(t, &fakePipeline{})
	rec := do(t, s.Handler(), http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg, "test")
	s, _ := newTestServer(t, &fakePipeline{}, WithMetrics(m, reg))

	do(t, s.Handler(), http.MethodGet, "/health", "")
	do(t, s.Handler(), http.MethodPost, "/run", `{"topic":""}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/run", "400")))

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestRunPanicEndsRequestRunFailed(t *testing.T) {
	s, store := newTestServer(t, &fakePipeline{panics: true})

	rec := do(t, s.Handler(), http.MethodPost, "/run", `{"topic":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, tracking.StatusFailed, runs[0].Status)
	assert.NotNil(t, runs[0].EndedAt)
}

// brokenRecorder cannot start runs.
type brokenRecorder struct{}

func (brokenRecorder) StartRun(context.Context, string, tracking.Run) (tracking.Run, error) {
	return nil, errors.New("database is locked")
}

func TestRunWithoutRecorderStillServes(t *testing.T) {
	p := &fakePipeline{}
	var logs bytes.Buffer
	s := New(types.DefaultConfig().Server, p, brokenRecorder{}, WithLogger(zerolog.New(&logs)))

	rec := do(t, s.Handler(), http.MethodPost, "/run", `{"topic":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"x"}, p.topics)
	require.Len(t, p.parents, 1)
	assert.NotEmpty(t, p.parents[0])
	assert.Contains(t, logs.String(), "database is locked")
}
