package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"procura/internal/mandate/models"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// InMemory keeps mandates in a mutex-guarded map. It favors clarity over
// performance and backs unit tests and single-process deployments.
type InMemory struct {
	mu       sync.RWMutex
	mandates map[id.MandateID]*models.Mandate
}

func NewInMemory() *InMemory {
	return &InMemory{mandates: make(map[id.MandateID]*models.Mandate)}
}

func (s *InMemory) Create(_ context.Context, mandate *models.Mandate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mandates[mandate.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *mandate
	s.mandates[mandate.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, mandateID id.MandateID) (*models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mandate, ok := s.mandates[mandateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *mandate
	return &copied, nil
}

func (s *InMemory) FindLatestActive(_ context.Context, userID id.UserID, provider id.Provider, now time.Time) (*models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Mandate
	for _, m := range s.mandates {
		if m.UserID != userID || m.Provider != provider {
			continue
		}
		if !m.ActiveAt(now) {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *InMemory) UpdateStatus(_ context.Context, mandateID id.MandateID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mandate, ok := s.mandates[mandateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	mandate.Status = status
	return nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Mandate
	for _, m := range s.mandates {
		if m.UserID == userID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
