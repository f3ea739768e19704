// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracking

import "github.com/google/uuid"

// DiscardRun returns a run handle that records nothing. Callers fall back to
// it when a recorder cannot start a run, so the work still happens.
func DiscardRun(name string) Run {
	return discardRun{id: uuid.NewString(), name: name}
}

type discardRun struct {
	id   string
	name string
}

func (r discardRun) ID() string { return r.id }
func (r discardRun) Name() string { return r.name }
func (discardRun) LogParam(string, any) {}
func (discardRun) LogArtifact(string, string) {}
func (discardRun) End(Status) {}
