// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tracking records pipeline runs: a named run with parameters,
// artifacts and a final status, optionally nested under a parent run.
//
// A Run is an explicit handle. Stages receive the handle they should write
// to; there is no process-wide "active run". Recording is fire-and-forget:
// write failures are logged and never reach the caller, so a broken tracking
// store cannot fail a pipeline run.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// ErrRunNotFound is returned by Reader.GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a handle to one recorded run.
type Run interface {
	ID() string
	Name() string

	// LogParam records a parameter. Logging the same key twice keeps the
	// last value.
	LogParam(key string, value any)

	// LogArtifact registers a file written during the run under a category
	// such as "search_results" or "summaries".
	LogArtifact(path, category string)

	// End closes the run with its final status. Only the first call counts.
	End(status Status)
}

// Recorder starts runs.
type Recorder interface {
	// StartRun opens a run named name. When parent is non-nil the new run is
	// nested under it.
	StartRun(ctx context.Context, name string, parent Run) (Run, error)
}

// ArtifactRecord is one registered artifact.
type ArtifactRecord struct {
	Path     string    `json:"path" yaml:"path"`
	Category string    `json:"category" yaml:"category"`
	LoggedAt time.Time `json:"logged_at" yaml:"logged_at"`
}

// RunRecord is the stored view of a run.
type RunRecord struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	ParentID  string            `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Status    Status            `json:"status" yaml:"status"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Params    map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Artifacts []ArtifactRecord  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Reader queries recorded runs.
type Reader interface {
	// ListRuns returns up to limit runs, most recent first, without params
	// or artifacts. A limit of zero or less returns every run.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// GetRun returns one run with its params and artifacts.
	GetRun(ctx context.Context, id string) (*RunRecord, error)
}

// Store is a Recorder that can also be queried and closed.
type Store interface {
	Recorder
	Reader
	Close() error
}

// New returns the store selected by cfg.Backend.
func New(cfg types.TrackingConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown tracking backend %q", cfg.Backend)
	}
}

// FormatParam renders a parameter value the way it is stored.
func FormatParam(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func parentID(parent Run) string {
	if parent == nil {
		return ""
	}
	return parent.ID()
}
