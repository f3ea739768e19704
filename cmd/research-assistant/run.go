// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/internal/search"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Search and summarize papers for one topic",
	Long: `Run executes the pipeline once for a topic. Search results are written to
the search storage directory and one summary document per paper to the
summary storage directory. The run and its parameters are recorded in the
tracking store.

Multiple arguments are joined with spaces into a single topic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, err := topicFromArgs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		rc, err := a.pipeline.Run(cmd.Context(), topic)
		if err != nil {
			return err
		}

		return writeContext(cmd.OutOrStdout(), rc, outputFormat(cmd))
	},
}

// topicFromArgs joins the arguments into one topic. The topic must be
// non-blank valid UTF-8 so that it survives serialization unchanged.
func topicFromArgs(args []string) (string, error) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return "", fmt.Errorf("topic must not be empty")
	}
	if !utf8.ValidString(topic) {
		return "", fmt.Errorf("topic must be valid UTF-8")
	}
	return topic, nil
}

// outputFormat returns json, yaml, csl or table from the run flags.
func outputFormat(cmd *cobra.Command) string {
	for _, f := range []string{"json", "yaml", "csl"} {
		if on, _ := cmd.Flags().GetBool(f); on {
			return f
		}
	}
	return "table"
}

func writeContext(w io.Writer, rc *types.ResearchContext, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rc); err != nil {
			return err
		}
		return enc.Close()
	case "csl":
		return search.FormatCSL(rc.SearchResults, rc.Summaries, w)
	default:
		search.FormatTable(rc.SearchResults, rc.Summaries, w)
		return nil
	}
}

func init() {
	runCmd.Flags().String("backend", "", "search backend (arxiv, openalex, semantic_scholar)")
	runCmd.Flags().Int("max-results", 0, "maximum number of papers to summarize")
	runCmd.Flags().String("model", "", "completion model")
	runCmd.Flags().String("prompt", "", "prompt template file")
	runCmd.Flags().Bool("json", false, "print the research context as JSON")
	runCmd.Flags().Bool("yaml", false, "print the research context as YAML")
	runCmd.Flags().Bool("csl", false, "print the papers as CSL-YAML citations")
	runCmd.MarkFlagsMutuallyExclusive("json", "yaml", "csl")

	_ = viper.BindPFlag("search.backend", runCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("search.max_results", runCmd.Flags().Lookup("max-results"))
	_ = viper.BindPFlag("summarize.model", runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("summarize.prompt_template", runCmd.Flags().Lookup("prompt"))

	rootCmd.AddCommand(runCmd)
}
