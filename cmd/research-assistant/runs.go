// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/tracking"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracking.New(cfg.Tracking, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), runs)
		}
		formatRuns(runs, cmd.OutOrStdout())
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its parameters and artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracking.New(cfg.Tracking, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), run)
		}
		formatRun(run, cmd.OutOrStdout())
		return nil
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(runs []tracking.RunRecord, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-20s  %s\n", "ID", "Status", "Started", "Name")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-8s  %-20s  %s\n",
			r.ID, r.Status, r.StartedAt.Local().Format(time.DateTime), r.Name)
	}
}

func formatRun(r *tracking.RunRecord, w io.Writer) {
	fmt.Fprintf(w, "ID:       %s\n", r.ID)
	fmt.Fprintf(w, "Name:     %s\n", r.Name)
	if r.ParentID != "" {
		fmt.Fprintf(w, "Parent:   %s\n", r.ParentID)
	}
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format(time.RFC3339))
	if r.EndedAt != nil {
		fmt.Fprintf(w, "Duration: %s\n", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}

	if len(r.Params) > 0 {
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "\nParams:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %-24s %s\n", k, r.Params[k])
		}
	}

	if len(r.Artifacts) > 0 {
		fmt.Fprintln(w, "\nArtifacts:")
		for _, a := range r.Artifacts {
			fmt.Fprintf(w, "  [%s] %s\n", a.Category, a.Path)
		}
	}
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	runsListCmd.Flags().Bool("json", false, "output as JSON")
	runsShowCmd.Flags().Bool("json", false, "output as JSON")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
