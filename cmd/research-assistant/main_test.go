// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/tracking"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RESEARCH_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research-assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  backend: openalex
  max_results: 10
  timeout: 15s
summarize:
  model: gpt-4o-mini
  retry_delay: 500ms
  max_attempts: 3
  timeout: 90s
tracking:
  backend: memory
schedule:
  topics: [graph neural networks, protein folding]
`), 0o644))

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.BackendOpenAlex, cfg.Search.Backend)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "research-assistant/0.1", cfg.Search.UserAgent, "unset keys keep defaults")
	assert.Equal(t, "gpt-4o-mini", cfg.Summarize.Model)
	assert.Equal(t, 500*time.Millisecond, cfg.Summarize.RetryDelay)
	assert.Equal(t, 3, cfg.Summarize.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Summarize.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout, "search and summarize timeouts are separate keys")
	assert.Equal(t, "memory", cfg.Tracking.Backend)
	assert.Equal(t, []string{"graph neural networks", "protein folding"}, cfg.Schedule.Topics)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("RESEARCH_ASSISTANT_SEARCH_MAX_RESULTS", "7")
	t.Setenv("RESEARCH_ASSISTANT_SUMMARIZE_API_KEY", "sk-env")
	t.Setenv("RESEARCH_ASSISTANT_SERVER_ADDR", ":9000")

	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, "sk-env", cfg.Summarize.APIKey)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": 1,
		"b": map[string]any{"c": "x", "d": map[string]any{"e": true}},
	})
	assert.Equal(t, map[string]any{"a": 1, "b.c": "x", "b.d.e": true}, got)
}

func sampleContext() *types.ResearchContext {
	rc := types.NewResearchContext("llm agents")
	rc.SearchResults = []types.Paper{{
		Title:     "Agents All The Way Down",
		Authors:   []string{"Ada Lovelace", "Alan Turing"},
		Abstract:  "We study agents.",
		URL:       "http://arxiv.org/abs/1",
		Published: "2024-01-02T00:00:00Z",
	}}
	rc.Summaries = []types.Summary{{Title: "Agents All The Way Down", Summary: "Agents, studied."}}
	return rc
}

func TestWriteContext(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeContext(&buf, sampleContext(), "table"))
		assert.Contains(t, buf.String(), "Agents All The Way Down")
		assert.Contains(t, buf.String(), "Agents, studied.")
		assert.Contains(t, buf.String(), "1 results")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeContext(&buf, sampleContext(), "json"))
		assert.Contains(t, buf.String(), `"topic": "llm agents"`)
		assert.Contains(t, buf.String(), `"schema_version": 1`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeContext(&buf, sampleContext(), "yaml"))
		assert.Contains(t, buf.String(), "topic: llm agents")
		assert.Contains(t, buf.String(), "summaries:")
	})

	t.Run("csl", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeContext(&buf, sampleContext(), "csl"))
		assert.Contains(t, buf.String(), "id: arXiv:1")
		assert.Contains(t, buf.String(), "note: Agents, studied.")
	})
}

func TestFormatRuns(t *testing.T) {
	var buf bytes.Buffer
	formatRuns(nil, &buf)
	assert.Equal(t, "No runs recorded.\n", buf.String())

	buf.Reset()
	formatRuns([]tracking.RunRecord{{ID: "abc", Name: "pipeline_x", Status: tracking.StatusFinished, StartedAt: time.Now()}}, &buf)
	assert.Contains(t, buf.String(), "pipeline_x")
	assert.Contains(t, buf.String(), "FINISHED")
}

func TestFormatRun(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	var buf bytes.Buffer
	formatRun(&tracking.RunRecord{
		ID:        "abc",
		Name:      "pipeline_x",
		ParentID:  "outer",
		Status:    tracking.StatusFinished,
		StartedAt: start,
		EndedAt:   &end,
		Params:    map[string]string{"num_summaries": "3", "pipeline_topic": "x"},
		Artifacts: []tracking.ArtifactRecord{{Path: "data/raw/search_1.json", Category: "search_results"}},
	}, &buf)

	out := buf.String()
	assert.Contains(t, out, "Parent:   outer")
	assert.Contains(t, out, "Duration: 1.5s")
	assert.Less(t, strings.Index(out, "num_summaries"), strings.Index(out, "pipeline_topic"))
	assert.Contains(t, out, "[search_results] data/raw/search_1.json")
}

func TestTopicFromArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "single", args: []string{"transformers"}, want: "transformers"},
		{name: "joined", args: []string{"graph", "neural", "networks"}, want: "graph neural networks"},
		{name: "trimmed", args: []string{"  llm agents "}, want: "llm agents"},
		{name: "blank", args: []string{" ", ""}, wantErr: "empty"},
		{name: "invalid utf-8", args: []string{"topic\xff"}, wantErr: "UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topicFromArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientsUseSeparateTimeouts(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Search.Timeout = 15 * time.Second

	assert.Equal(t, 15*time.Second, searchClient(cfg).Timeout)
	assert.Zero(t, completionClient(cfg).Timeout, "completion has no timeout by default")

	cfg.Summarize.Timeout = 2 * time.Minute
	assert.Equal(t, 2*time.Minute, completionClient(cfg).Timeout)
	assert.Equal(t, 15*time.Second, searchClient(cfg).Timeout)
}
