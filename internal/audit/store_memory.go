package audit

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for tests and single-process
// deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.EntryID]*Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.EntryID]*Entry)}
}

func (s *InMemoryStore) Insert(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; ok {
		return sentinel.ErrConflict
	}
	s.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (s *InMemoryStore) Seal(_ context.Context, entryID id.EntryID, decision Decision, result any, sealedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if entry.Sealed() {
		return sentinel.ErrInvalidState
	}
	entry.Decision = decision
	entry.Result = result
	entry.SealedAt = &sealedAt
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.EntryID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyEntry(entry), nil
}

func (s *InMemoryStore) ListByPlanExecution(_ context.Context, planExecutionID id.PlanExecutionID) ([]*Entry, error) {
	return s.list(func(e *Entry) bool { return e.PlanExecutionID == planExecutionID }), nil
}

func (s *InMemoryStore) ListByMandate(_ context.Context, mandateID id.MandateID) ([]*Entry, error) {
	return s.list(func(e *Entry) bool { return e.MandateID == mandateID }), nil
}

func (s *InMemoryStore) ListByTool(_ context.Context, tool string) ([]*Entry, error) {
	return s.list(func(e *Entry) bool { return e.Tool == tool }), nil
}

func (s *InMemoryStore) list(match func(*Entry) bool) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for _, entry := range s.entries {
		if match(entry) {
			out = append(out, copyEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func copyEntry(entry *Entry) *Entry {
	c := *entry
	if entry.Args != nil {
		c.Args = maps.Clone(entry.Args)
	}
	if entry.SealedAt != nil {
		sealedAt := *entry.SealedAt
		c.SealedAt = &sealedAt
	}
	return &c
}
