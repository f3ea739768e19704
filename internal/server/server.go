// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the research pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Pipeline runs the research stages for one topic inside a parent run.
type Pipeline interface {
	RunWithin(ctx context.Context, parent tracking.Run, topic string) (*types.ResearchContext, error)
}

// Server is the HTTP front end.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	pipeline   Pipeline
	recorder   tracking.Recorder
	runs       tracking.Reader
	gatherer   prometheus.Gatherer
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = observability.Component(logger, "http-server") }
}

// WithMetrics records request metrics into m and serves gatherer on /metrics.
func WithMetrics(m *observability.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithRunReader enables the read-only /runs endpoints.
func WithRunReader(r tracking.Reader) Option {
	return func(s *Server) { s.runs = r }
}

// New creates a server that runs p for each POST /run, each inside an
// outer request run started on recorder.
func New(cfg types.ServerConfig, p Pipeline, recorder tracking.Recorder, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		recorder: recorder,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Post("/run", s.runHandler)

	if s.runs != nil {
		r.Get("/runs", s.listRunsHandler)
		r.Get("/runs/{runID}", s.getRunHandler)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runRequest struct {
	Topic string `json:"topic"`
}

// maxRunBody caps the POST /run request body.
const maxRunBody = 1 << 20

// runHandler executes the whole pipeline synchronously and returns the
// serialized context. Failures are logged in full and reported to the
// client as a bare 500. The outer request run ends FAILED unless the
// pipeline returned a context, including when it panics.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRunBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	// encoding/json would silently replace invalid bytes with U+FFFD.
	if !utf8.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be valid UTF-8")
		return
	}
	var req runRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with a topic")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	reqID := middleware.GetReqID(r.Context())
	logger := s.logger.With().Str("request_id", reqID).Str("topic", req.Topic).Logger()

	name := "request_" + reqID
	outer, err := s.recorder.StartRun(r.Context(), name, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("run recorder unavailable, continuing unrecorded")
		outer = tracking.DiscardRun(name)
	}
	finished := false
	defer func() {
		if finished {
			outer.End(tracking.StatusFinished)
		} else {
			outer.End(tracking.StatusFailed)
		}
	}()

	logger.Info().Msg("pipeline starting")
	rc, err := s.pipeline.RunWithin(r.Context(), outer, req.Topic)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline failed")
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	finished = true

	logger.Info().Int("summaries", len(rc.Summaries)).Msg("pipeline completed")
	writeJSON(w, http.StatusOK, rc)
}

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(r.Context(), 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing runs")
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRunHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, tracking.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", id).Msg("loading run")
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; an encode failure cannot change the response.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
