// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Search.Validate())
	require.NoError(t, cfg.Summarize.Validate())
}

func TestSearchConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *SearchConfig)
		wantErr string
	}{
		{"zero max results", func(c *SearchConfig) { c.MaxResults = 0 }, "MaxResults"},
		{"negative max results", func(c *SearchConfig) { c.MaxResults = -1 }, "MaxResults"},
		{"missing storage dir", func(c *SearchConfig) { c.StorageDir = "" }, "StorageDir"},
		{"unknown backend", func(c *SearchConfig) { c.Backend = "scholar" }, "Backend"},
		{"negative rate", func(c *SearchConfig) { c.RequestsPerSecond = -1 }, "RequestsPerSecond"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig().Search
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSummarizeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *SummarizeConfig)
		wantErr string
	}{
		{"missing model", func(c *SummarizeConfig) { c.Model = "" }, "Model"},
		{"unknown provider", func(c *SummarizeConfig) { c.Provider = "cohere" }, "Provider"},
		{"missing template", func(c *SummarizeConfig) { c.PromptTemplate = "" }, "PromptTemplate"},
		{"zero output cap", func(c *SummarizeConfig) { c.MaxOutputTokens = 0 }, "MaxOutputTokens"},
		{"zero attempts", func(c *SummarizeConfig) { c.MaxAttempts = 0 }, "MaxAttempts"},
		{"shrinking backoff", func(c *SummarizeConfig) { c.RetryMultiplier = 0.5 }, "RetryMultiplier"},
		{"negative delay", func(c *SummarizeConfig) { c.RetryDelay = -1 }, "RetryDelay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig().Summarize
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrackingConfigRequiresPathForSQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracking.DBPath = ""
	require.Error(t, cfg.Validate())

	cfg.Tracking.Backend = "memory"
	require.NoError(t, cfg.Validate())
}
