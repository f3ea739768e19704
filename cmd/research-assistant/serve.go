// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve starts an HTTP server with these endpoints:

  POST /run        {"topic": "..."} runs the pipeline and returns the context
  GET  /health     liveness check
  GET  /runs       recent recorded runs
  GET  /runs/{id}  one run with its parameters and artifacts
  GET  /metrics    Prometheus metrics

Each POST /run is recorded as a request run with the pipeline run nested
inside it. The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg, "research_assistant")

		a, err := newApp(cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(cfg.Server, a.pipeline, a.runs,
			server.WithLogger(logger),
			server.WithMetrics(metrics, reg),
			server.WithRunReader(a.runs),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
