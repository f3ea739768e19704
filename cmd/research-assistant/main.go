// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-assistant CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/observability"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the validated configuration, built before any subcommand runs.
	cfg types.Config

	// logger is built from cfg.Logging.
	logger zerolog.Logger
)

// rootCmd is the base command for the research-assistant CLI.
var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Search academic papers on a topic and summarize them",
	Long: `research-assistant runs a two-stage research pipeline: it searches an
academic API (arXiv, OpenAlex or Semantic Scholar) for papers on a topic,
then asks a language model for a short summary of each paper. Every run is
recorded with its parameters and the JSON artifacts it wrote.

Run the pipeline once with "run", serve it over HTTP with "serve", or rerun
a list of topics on a cron schedule with "watch".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logger = observability.NewLogger(c.Logging)

		secretsDir, _ := cmd.Flags().GetString("secrets")
		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		secrets.Apply(&c, s)

		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-assistant.yaml or ~/.config/research-assistant/config.yaml)")
	rootCmd.PersistentFlags().String("secrets", ".secrets/", "directory of secret key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-assistant")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-assistant"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_ASSISTANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
