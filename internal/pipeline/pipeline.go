// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the research stages in a fixed order against one
// ResearchContext per topic, inside a recorded run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Stage is one step of the pipeline. A stage mutates only its own field of
// the context and records what it did on run.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *types.ResearchContext, run tracking.Run) error
}

// Orchestrator owns the search and summarization stages. It holds no
// per-run state, so one Orchestrator may serve concurrent runs as long as
// its stages can.
type Orchestrator struct {
	search    Stage
	summarize Stage
	recorder  tracking.Recorder
	logger    zerolog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = observability.Component(logger, "pipeline") }
}

// WithMetrics sets the metrics the orchestrator records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New returns an orchestrator that runs search, then summarize.
func New(search, summarize Stage, recorder tracking.Recorder, opts ...Option) (*Orchestrator, error) {
	if search == nil || summarize == nil {
		return nil, fmt.Errorf("pipeline requires both a search and a summarize stage")
	}
	if recorder == nil {
		return nil, fmt.Errorf("pipeline requires a run recorder")
	}
	o := &Orchestrator{
		search:    search,
		summarize: summarize,
		recorder:  recorder,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the pipeline for topic in a new top-level run.
func (o *Orchestrator) Run(ctx context.Context, topic string) (*types.ResearchContext, error) {
	return o.RunWithin(ctx, nil, topic)
}

// RunWithin executes the pipeline for topic in a run nested under parent.
// A nil parent starts a top-level run.
//
// The run ends FINISHED when both stages succeed and FAILED otherwise,
// including on panic. A recorder that cannot start the run does not stop
// the pipeline; the run is then simply not recorded. Summarization never
// starts when search failed. On
// error the returned context is nil; artifacts written before the failure
// stay on disk.
func (o *Orchestrator) RunWithin(ctx context.Context, parent tracking.Run, topic string) (rc *types.ResearchContext, err error) {
	run, err := o.recorder.StartRun(ctx, "pipeline_"+topic, parent)
	if err != nil {
		o.logger.Warn().Err(err).Str("topic", topic).Msg("run recorder unavailable, continuing unrecorded")
		run = tracking.DiscardRun("pipeline_" + topic)
	}

	logger := observability.WithRunContext(o.logger, run.ID(), topic)
	start := o.now()
	o.metrics.RecordRunStarted()

	completed := false
	defer func() {
		elapsed := o.now().Sub(start).Seconds()
		if completed && err == nil {
			run.End(tracking.StatusFinished)
			o.metrics.RecordRunCompleted(elapsed)
			return
		}
		run.End(tracking.StatusFailed)
		o.metrics.RecordRunFailed(elapsed)
		if err != nil {
			logger.Error().Err(err).Msg("pipeline run failed")
		}
	}()

	run.LogParam("pipeline_topic", topic)
	rc = types.NewResearchContext(topic)

	for _, stage := range []Stage{o.search, o.summarize} {
		logger.Debug().Str("stage", stage.Name()).Msg("stage starting")
		if err := stage.Run(ctx, rc, run); err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.Name(), err)
		}
	}

	run.LogParam("num_search_results", len(rc.SearchResults))
	run.LogParam("num_summaries", len(rc.Summaries))
	completed = true

	logger.Info().
		Int("search_results", len(rc.SearchResults)).
		Int("summaries", len(rc.Summaries)).
		Dur("elapsed", o.now().Sub(start)).
		Msg("pipeline run finished")
	return rc, nil
}
