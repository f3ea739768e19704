// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate checks config struct tags. validator caches struct metadata, so
// one instance is shared.
var validate = validator.New(validator.WithRequiredStructEnabled())

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchBackend names the paper-search collaborator.
type SearchBackend string

const (
	BackendArxiv           SearchBackend = "arxiv"
	BackendOpenAlex        SearchBackend = "openalex"
	BackendSemanticScholar SearchBackend = "semantic_scholar"
)

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the search collaborator: arxiv, openalex or
	// semantic_scholar.
	Backend SearchBackend `json:"backend" yaml:"backend" mapstructure:"backend" validate:"oneof=arxiv openalex semantic_scholar"`

	// MaxResults is the maximum number of papers requested (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gt=0"`

	// StorageDir receives the raw search snapshots (default data/raw).
	StorageDir string `json:"storage_dir" yaml:"storage_dir" mapstructure:"storage_dir" validate:"required"`

	// RequestsPerSecond paces outbound search requests. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`

	// OpenAlexEmail is sent as the mailto parameter for OpenAlex polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// SemanticScholarAPIKey raises the Semantic Scholar rate limit when set.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// Validate reports whether the search configuration is usable.
func (c SearchConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid search config: %w", err)
	}
	return nil
}

// CompletionProvider names the text-completion collaborator.
type CompletionProvider string

const (
	ProviderOpenAI    CompletionProvider = "openai"
	ProviderAnthropic CompletionProvider = "anthropic"
)

// AIConfig holds shared settings for stages that call a completion API.
type AIConfig struct {
	// Provider selects the completion API: openai or anthropic.
	Provider CompletionProvider `json:"provider" yaml:"provider" mapstructure:"provider" validate:"oneof=openai anthropic"`

	// Model is the model identifier (e.g. "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`

	// APIKey is the authentication key for the completion API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// SummarizeConfig holds settings for the summarization stage.
type SummarizeConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// PromptTemplate is the path of the prompt template file. It may use
	// {{.Title}}, {{.Abstract}} and {{.URL}}.
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template" mapstructure:"prompt_template" validate:"required"`

	// MaxOutputTokens caps the completion length (default 256).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens" mapstructure:"max_output_tokens" validate:"gt=0"`

	// StorageDir receives one summary document per paper (default data/summaries).
	StorageDir string `json:"storage_dir" yaml:"storage_dir" mapstructure:"storage_dir" validate:"required"`

	// RetryDelay is the pause after a rate-limited completion (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay" validate:"gte=0"`

	// MaxAttempts is the number of completion attempts per paper while the
	// provider keeps rate limiting (default 1: give up after the first).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`

	// RetryMultiplier grows RetryDelay between attempts (default 1: fixed delay).
	RetryMultiplier float64 `json:"retry_multiplier" yaml:"retry_multiplier" mapstructure:"retry_multiplier" validate:"gte=1"`

	// Timeout bounds each completion request. Zero (the default) means no
	// timeout; it is independent of the search timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// Validate reports whether the summarization configuration is usable.
func (c SummarizeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid summarize config: %w", err)
	}
	return nil
}

// TrackingConfig selects the run recorder.
type TrackingConfig struct {
	// Backend is sqlite (persistent) or memory (process lifetime only).
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend" validate:"oneof=sqlite memory"`

	// DBPath is the SQLite database file (default data/tracking.db).
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path" validate:"required_if=Backend sqlite"`
}

// ServerConfig holds the HTTP front-end settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=json console pretty"`

	// Output is stdout or stderr.
	Output string `json:"output" yaml:"output" mapstructure:"output" validate:"oneof=stdout stderr"`
}

// ScheduleConfig drives repeated runs in watch mode.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression.
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	// Topics are run in order on every tick.
	Topics []string `json:"topics" yaml:"topics" mapstructure:"topics"`

	// RunOnStart runs every topic once before the first tick.
	RunOnStart bool `json:"run_on_start" yaml:"run_on_start" mapstructure:"run_on_start"`
}

// Config groups all settings for the research assistant.
type Config struct {
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Summarize SummarizeConfig `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
	Tracking  TrackingConfig  `json:"tracking" yaml:"tracking" mapstructure:"tracking"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "research-assistant/0.1",
			},
			Backend:           BackendArxiv,
			MaxResults:        5,
			StorageDir:        "data/raw",
			RequestsPerSecond: 1.0 / 3.0,
		},
		Summarize: SummarizeConfig{
			AIConfig: AIConfig{
				Provider: ProviderOpenAI,
				Model:    "gpt-3.5-turbo",
			},
			PromptTemplate:  "prompts/summarize_prompt.tmpl",
			MaxOutputTokens: 256,
			StorageDir:      "data/summaries",
			RetryDelay:      2 * time.Second,
			MaxAttempts:     1,
			RetryMultiplier: 1,
		},
		Tracking: TrackingConfig{
			Backend: "sqlite",
			DBPath:  "data/tracking.db",
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Schedule: ScheduleConfig{
			Cron:   "0 8 * * *",
			Topics: []string{},
		},
	}
}

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
