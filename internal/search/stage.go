// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/artifact"
	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ArtifactCategory is the run artifact category for search snapshots.
const ArtifactCategory = "search_results"

// Stage runs one search for the context's topic, stores the results on the
// context and snapshots them to disk.
type Stage struct {
	backend    Backend
	maxResults int
	store      *artifact.Store
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets the stage logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Stage) { s.logger = observability.Component(logger, "search") }
}

// WithMetrics sets the metrics the stage records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// NewStage validates cfg and returns a search stage using backend.
func NewStage(backend Backend, cfg types.SearchConfig, opts ...Option) (*Stage, error) {
	if backend == nil {
		return nil, fmt.Errorf("search stage requires a backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Stage{
		backend:    backend,
		maxResults: cfg.MaxResults,
		store:      artifact.NewStore(cfg.StorageDir),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the stage name.
func (s *Stage) Name() string { return "search" }

// Run searches for rc's topic and replaces rc.SearchResults with the
// results in backend order. The snapshot file name depends only on the
// topic, so repeating a topic overwrites the previous snapshot. Backend
// errors are returned unchanged apart from added context.
func (s *Stage) Run(ctx context.Context, rc *types.ResearchContext, run tracking.Run) error {
	topic := rc.Topic()
	run.LogParam("search_topic", topic)
	run.LogParam("max_results", s.maxResults)
	run.LogParam("search_backend", s.backend.Name())

	start := time.Now()
	papers, err := s.backend.Search(ctx, topic, s.maxResults)
	if err != nil {
		s.metrics.RecordSearchFailed(s.backend.Name(), time.Since(start).Seconds())
		return fmt.Errorf("searching %s for %q: %w", s.backend.Name(), topic, err)
	}
	if papers == nil {
		papers = []types.Paper{}
	}
	s.metrics.RecordSearchCompleted(s.backend.Name(), len(papers), time.Since(start).Seconds())

	rc.SearchResults = papers

	path, err := s.store.WriteJSON(artifact.SearchFileName(topic), papers)
	if err != nil {
		return fmt.Errorf("writing search snapshot: %w", err)
	}
	run.LogArtifact(path, ArtifactCategory)
	s.metrics.RecordArtifact(ArtifactCategory)

	s.logger.Info().
		Str("topic", topic).
		Str("backend", s.backend.Name()).
		Int("results", len(papers)).
		Str("path", path).
		Msg("search complete")
	return nil
}
