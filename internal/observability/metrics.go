// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for pipeline runs, searches,
// completions, artifacts and the HTTP front end.
//
// All Record methods are safe to call on a nil *Metrics, so components can
// be built without metrics in tests and one-shot CLI runs.
type Metrics struct {
	// RunsStarted counts pipeline runs started.
	RunsStarted prometheus.Counter

	// RunsCompleted counts pipeline runs that finished successfully.
	RunsCompleted prometheus.Counter

	// RunsFailed counts pipeline runs that ended with an error.
	RunsFailed prometheus.Counter

	// RunDuration observes end-to-end run duration in seconds.
	RunDuration prometheus.Histogram

	// Searches counts search calls by backend and outcome (ok, error).
	Searches *prometheus.CounterVec

	// SearchDuration observes search latency in seconds by backend.
	SearchDuration *prometheus.HistogramVec

	// PapersFound counts papers returned by search, by backend.
	PapersFound *prometheus.CounterVec

	// Completions counts completion attempts by model and outcome
	// (ok, rate_limited, error).
	Completions *prometheus.CounterVec

	// CompletionDuration observes completion latency in seconds by model.
	CompletionDuration *prometheus.HistogramVec

	// ArtifactsWritten counts artifact documents written, by category.
	ArtifactsWritten *prometheus.CounterVec

	// HTTPRequests counts front-end requests by route and status code.
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg under
// namespace. Passing prometheus.DefaultRegisterer exposes them through the
// default gatherer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_started_total",
			Help:      "Pipeline runs started.",
		}),
		RunsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_completed_total",
			Help:      "Pipeline runs that finished successfully.",
		}),
		RunsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_failed_total",
			Help:      "Pipeline runs that ended with an error.",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		PapersFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "papers_total",
			Help:      "Papers returned by search.",
		}, []string{"backend"}),
		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarize",
			Name:      "completions_total",
			Help:      "Completion attempts by model and outcome.",
		}, []string{"model", "outcome"}),
		CompletionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summarize",
			Name:      "completion_duration_seconds",
			Help:      "Completion call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
		ArtifactsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "written_total",
			Help:      "Artifact documents written by category.",
		}, []string{"category"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) RecordRunStarted() {
	if m == nil {
		return
	}
	m.RunsStarted.Inc()
}

func (m *Metrics) RecordRunCompleted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordRunFailed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunsFailed.Inc()
	m.RunDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordSearchCompleted(backend string, paperCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(backend, "ok").Inc()
	m.SearchDuration.WithLabelValues(backend).Observe(durationSeconds)
	m.PapersFound.WithLabelValues(backend).Add(float64(paperCount))
}

func (m *Metrics) RecordSearchFailed(backend string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(backend, "error").Inc()
	m.SearchDuration.WithLabelValues(backend).Observe(durationSeconds)
}

// RecordCompletion records one completion attempt. outcome is ok,
// rate_limited or error.
func (m *Metrics) RecordCompletion(model, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(model, outcome).Inc()
	m.CompletionDuration.WithLabelValues(model).Observe(durationSeconds)
}

func (m *Metrics) RecordArtifact(category string) {
	if m == nil {
		return
	}
	m.ArtifactsWritten.WithLabelValues(category).Inc()
}

func (m *Metrics) RecordHTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
