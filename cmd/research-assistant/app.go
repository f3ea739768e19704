// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/completion"
	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/internal/summarize"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// app holds the wired pipeline and the run store it records into.
type app struct {
	pipeline *pipeline.Orchestrator
	runs     tracking.Store
}

// Close releases the run store.
func (a *app) Close() error { return a.runs.Close() }

// newApp wires the search backend, the completion provider, both stages and
// the run store. metrics may be nil.
func newApp(cfg types.Config, logger zerolog.Logger, metrics *observability.Metrics) (*app, error) {
	store, err := tracking.New(cfg.Tracking, logger)
	if err != nil {
		return nil, err
	}

	orch, err := newPipeline(cfg, store, logger, metrics)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{pipeline: orch, runs: store}, nil
}

func newPipeline(cfg types.Config, recorder tracking.Recorder, logger zerolog.Logger, metrics *observability.Metrics) (*pipeline.Orchestrator, error) {
	backend, err := search.NewBackend(cfg.Search, searchClient(cfg))
	if err != nil {
		return nil, err
	}
	searchStage, err := search.NewStage(backend, cfg.Search,
		search.WithLogger(logger), search.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	completer, err := completion.New(cfg.Summarize.AIConfig, completionClient(cfg))
	if err != nil {
		return nil, fmt.Errorf("configuring summarizer: %w", err)
	}
	summarizeStage, err := summarize.NewStage(completer, cfg.Summarize,
		summarize.WithLogger(logger), summarize.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	return pipeline.New(searchStage, summarizeStage, recorder,
		pipeline.WithLogger(logger), pipeline.WithMetrics(metrics))
}

// searchClient bounds each search request by search.timeout.
func searchClient(cfg types.Config) *http.Client {
	return &http.Client{Timeout: cfg.Search.Timeout}
}

// completionClient bounds each completion request by summarize.timeout,
// which defaults to no timeout. A timed-out completion is not a rate limit
// and aborts the run, so it never inherits the search timeout.
func completionClient(cfg types.Config) *http.Client {
	return &http.Client{Timeout: cfg.Summarize.Timeout}
}
