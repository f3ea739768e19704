// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: openai-api-key, anthropic-api-key, openalex-email,
// semantic-scholar-api-key. Other files are loaded but ignored by Apply.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Key file names.
const (
	OpenAIAPIKey          = "openai-api-key"
	AnthropicAPIKey       = "anthropic-api-key"
	OpenAlexEmail         = "openalex-email"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg that are still empty. Values already set
// by the config file, environment or flags win over secret files.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.Summarize.APIKey == "" {
		switch cfg.Summarize.Provider {
		case types.ProviderAnthropic:
			cfg.Summarize.APIKey = secrets[AnthropicAPIKey]
		default:
			cfg.Summarize.APIKey = secrets[OpenAIAPIKey]
		}
	}
	if cfg.Search.OpenAlexEmail == "" {
		cfg.Search.OpenAlexEmail = secrets[OpenAlexEmail]
	}
	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = secrets[SemanticScholarAPIKey]
	}
}
