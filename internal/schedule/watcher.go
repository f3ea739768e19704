// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule reruns the pipeline for a fixed list of topics on a cron
// schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Runner runs the pipeline for one topic.
type Runner interface {
	Run(ctx context.Context, topic string) (*types.ResearchContext, error)
}

// Watcher runs every topic in order on each cron tick. A tick that fires
// while the previous one is still running is skipped.
type Watcher struct {
	spec   string
	topics []string
	runner Runner
	logger zerolog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewWatcher validates spec, a standard five-field cron expression, and
// returns a stopped watcher.
func NewWatcher(spec string, topics []string, runner Runner, logger zerolog.Logger) (*Watcher, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("watch requires at least one topic")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing cron schedule %q: %w", spec, err)
	}
	return &Watcher{
		spec:   spec,
		topics: append([]string(nil), topics...),
		runner: runner,
		logger: observability.Component(logger, "schedule"),
	}, nil
}

// RunOnce runs every topic once, in order. A failing topic does not stop
// the others; all failures are returned joined.
func (w *Watcher) RunOnce(ctx context.Context) error {
	var errs []error
	for _, topic := range w.topics {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rc, err := w.runner.Run(ctx, topic)
		if err != nil {
			w.logger.Error().Err(err).Str("topic", topic).Msg("scheduled run failed")
			errs = append(errs, fmt.Errorf("topic %q: %w", topic, err))
			continue
		}
		w.logger.Info().
			Str("topic", topic).
			Int("summaries", len(rc.Summaries)).
			Msg("scheduled run finished")
	}
	return errors.Join(errs...)
}

// Start schedules RunOnce and returns immediately. Runs use a context
// derived from ctx that is cancelled by Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return fmt.Errorf("watcher already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{w.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(w.spec, func() {
		w.logger.Info().Int("topics", len(w.topics)).Msg("cron triggered")
		_ = w.RunOnce(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("scheduling %q: %w", w.spec, err)
	}

	c.Start()
	w.cron = c
	w.cancel = cancel
	w.logger.Info().Str("schedule", w.spec).Strs("topics", w.topics).Msg("watcher started")
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	c, cancel := w.cron, w.cancel
	w.cron, w.cancel = nil, nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	w.logger.Info().Msg("watcher stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
