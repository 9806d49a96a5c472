package evidence

import (
	"context"
	"sort"
	"sync"

	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	assets map[id.AssetID]*Asset
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{assets: make(map[id.AssetID]*Asset)}
}

func (s *InMemoryStore) Append(_ context.Context, asset *Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; ok {
		return sentinel.ErrConflict
	}
	a := *asset
	s.assets[asset.ID] = &a
	return nil
}

func (s *InMemoryStore) ListByPlanExecution(_ context.Context, planExecutionID id.PlanExecutionID) ([]*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Asset
	for _, asset := range s.assets {
		if asset.PlanExecutionID == planExecutionID {
			a := *asset
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
