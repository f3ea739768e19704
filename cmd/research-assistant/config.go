// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// credentialKeys are omitted from the default document because they are
// empty, so they are bound to the environment explicitly.
var credentialKeys = []string{
	"summarize.api_key",
	"summarize.base_url",
	"search.openalex_email",
	"search.semantic_scholar_api_key",
}

// loadConfig decodes v over types.DefaultConfig. Every default is registered
// with v first so that environment variables reach keys absent from the
// config file.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := registerDefaults(v, cfg); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func registerDefaults(v *viper.Viper, cfg types.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding default config: %w", err)
	}
	for key, value := range flatten("", doc) {
		v.SetDefault(key, value)
	}
	for _, key := range credentialKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// flatten turns nested maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
