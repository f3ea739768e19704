// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/schedule"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun a list of topics on a cron schedule",
	Long: `Watch runs the pipeline for every configured topic on each tick of a
standard five-field cron expression (schedule.cron, default "0 8 * * *").
Topics come from schedule.topics or repeated --topic flags. A failing topic
is logged and the remaining topics still run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := schedule.NewWatcher(cfg.Schedule.Cron, cfg.Schedule.Topics, a.pipeline, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Schedule.RunOnStart {
			if err := w.RunOnce(ctx); err != nil {
				logger.Warn().Err(err).Msg("initial run had failures")
			}
		}

		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().String("cron", "", "cron expression")
	watchCmd.Flags().StringSlice("topic", nil, "topic to research (repeatable)")
	watchCmd.Flags().Bool("run-on-start", false, "run every topic once before the first tick")
	_ = viper.BindPFlag("schedule.cron", watchCmd.Flags().Lookup("cron"))
	_ = viper.BindPFlag("schedule.topics", watchCmd.Flags().Lookup("topic"))
	_ = viper.BindPFlag("schedule.run_on_start", watchCmd.Flags().Lookup("run-on-start"))

	rootCmd.AddCommand(watchCmd)
}
