// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory. It is used by tests and by
// deployments that do not need run history across restarts.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*RunRecord
	seq  map[string]int
	next int
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*RunRecord),
		seq:  make(map[string]int),
		now:  time.Now,
	}
}

// StartRun implements Recorder.
func (s *MemoryStore) StartRun(_ context.Context, name string, parent Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.runs[id] = &RunRecord{
		ID:        id,
		Name:      name,
		ParentID:  parentID(parent),
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
		Params:    map[string]string{},
	}
	s.seq[id] = s.next
	s.next++
	return &memoryRun{store: s, id: id, name: name}, nil
}

// ListRuns implements Reader.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		rec := *r
		rec.Params = nil
		rec.Artifacts = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun implements Reader.
func (s *MemoryStore) GetRun(_ context.Context, id string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	rec := *r
	rec.Params = make(map[string]string, len(r.Params))
	for k, v := range r.Params {
		rec.Params[k] = v
	}
	rec.Artifacts = append([]ArtifactRecord(nil), r.Artifacts...)
	return &rec, nil
}

// Close implements Store. It is a no-op.
func (s *MemoryStore) Close() error { return nil }

type memoryRun struct {
	store *MemoryStore
	id    string
	name  string
}

func (r *memoryRun) ID() string   { return r.id }
func (r *memoryRun) Name() string { return r.name }

func (r *memoryRun) LogParam(key string, value any) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs[r.id].Params[key] = FormatParam(value)
}

func (r *memoryRun) LogArtifact(path, category string) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec := r.store.runs[r.id]
	rec.Artifacts = append(rec.Artifacts, ArtifactRecord{
		Path:     path,
		Category: category,
		LoggedAt: r.store.now().UTC(),
	})
}

func (r *memoryRun) End(status Status) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec := r.store.runs[r.id]
	if rec.Status != StatusRunning {
		return
	}
	ended := r.store.now().UTC()
	rec.Status = status
	rec.EndedAt = &ended
}
