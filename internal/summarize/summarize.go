// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces one LLM summary per search result. Rate-limit
// responses from the completion provider are tolerated: the paper gets an
// empty summary and the batch moves on. Every other completion error stops
// the batch.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/artifact"
	"github.com/pdiddy/research-assistant/internal/completion"
	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/retry"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ArtifactCategory is the run artifact category for summary documents.
const ArtifactCategory = "summaries"

// Stage summarizes rc.SearchResults in order.
type Stage struct {
	completer completion.Completer
	prompt    *Prompt
	model     string
	maxTokens int
	policy    retry.Policy
	store     *artifact.Store
	logger    zerolog.Logger
	metrics   *observability.Metrics

	// sleep is retry.Sleep outside tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets the stage logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Stage) { s.logger = observability.Component(logger, "summarize") }
}

// WithMetrics sets the metrics the stage records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// NewStage validates cfg, loads the prompt template and returns a
// summarization stage. A missing or invalid template is a configuration
// error.
func NewStage(completer completion.Completer, cfg types.SummarizeConfig, opts ...Option) (*Stage, error) {
	if completer == nil {
		return nil, fmt.Errorf("summarize stage requires a completer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prompt, err := LoadPrompt(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}

	s := &Stage{
		completer: completer,
		prompt:    prompt,
		model:     cfg.Model,
		maxTokens: cfg.MaxOutputTokens,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       cfg.RetryDelay,
			Multiplier:  cfg.RetryMultiplier,
		},
		store:  artifact.NewStore(cfg.StorageDir),
		logger: zerolog.Nop(),
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the stage name.
func (s *Stage) Name() string { return "summarize" }

// Run summarizes every paper in rc.SearchResults and replaces rc.Summaries
// with one entry per paper, in the same order. Each summary document is
// written before the next paper is processed, so documents for completed
// papers survive a later failure. On error rc.Summaries is left unchanged.
func (s *Stage) Run(ctx context.Context, rc *types.ResearchContext, run tracking.Run) error {
	run.LogParam("summarizer_model", s.model)
	run.LogParam("prompt_template", s.prompt.Name())
	run.LogParam("max_output_tokens", s.maxTokens)

	summaries := make([]types.Summary, 0, len(rc.SearchResults))
	for i, paper := range rc.SearchResults {
		prompt, err := s.prompt.Render(paper)
		if err != nil {
			return fmt.Errorf("rendering prompt for paper %d: %w", i, err)
		}
		hash := artifact.Key(prompt)
		run.LogParam(fmt.Sprintf("prompt_hash_%d", i), hash)

		text, err := s.complete(ctx, run, i, paper, prompt)
		if err != nil {
			return fmt.Errorf("summarizing paper %d %q: %w", i, paper.Title, err)
		}

		summary := types.Summary{
			Title:      paper.Title,
			Summary:    text,
			Model:      s.model,
			PromptHash: hash,
		}
		summaries = append(summaries, summary)

		path, err := s.store.WriteJSON(artifact.SummaryFileName(hash), summary)
		if err != nil {
			return fmt.Errorf("writing summary for paper %d: %w", i, err)
		}
		run.LogArtifact(path, ArtifactCategory)
		s.metrics.RecordArtifact(ArtifactCategory)

		s.logger.Debug().
			Int("index", i).
			Str("title", paper.Title).
			Bool("empty", text == "").
			Str("path", path).
			Msg("paper summarized")
	}

	rc.Summaries = summaries
	s.logger.Info().
		Str("topic", rc.Topic()).
		Int("summaries", len(summaries)).
		Msg("summarization complete")
	return nil
}

// complete calls the completer, waiting the policy delay after every
// rate-limited attempt. When the final attempt is rate limited the result
// is an empty summary and no error.
func (s *Stage) complete(ctx context.Context, run tracking.Run, index int, paper types.Paper, prompt string) (string, error) {
	req := completion.Request{Model: s.model, Prompt: prompt, MaxOutputTokens: s.maxTokens}
	attempts := s.policy.Attempts()

	for attempt := 1; ; attempt++ {
		start := time.Now()
		text, err := s.completer.Complete(ctx, req)
		elapsed := time.Since(start).Seconds()
		if err == nil {
			s.metrics.RecordCompletion(s.model, "ok", elapsed)
			return text, nil
		}
		if !errors.Is(err, completion.ErrRateLimited) {
			s.metrics.RecordCompletion(s.model, "error", elapsed)
			return "", err
		}

		s.metrics.RecordCompletion(s.model, "rate_limited", elapsed)
		run.LogParam("rate_limit_error", true)
		delay := s.policy.Backoff(attempt)
		s.logger.Warn().
			Err(err).
			Int("index", index).
			Str("title", paper.Title).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("rate limited")

		if err := s.sleep(ctx, delay); err != nil {
			return "", err
		}
		if attempt >= attempts {
			return "", nil
		}
	}
}
