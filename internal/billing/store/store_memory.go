package store

import (
	"context"
	"sync"
	"time"

	"procura/internal/billing/models"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// InMemoryCharges is a mutex-guarded charge store for tests and
// single-process deployments.
type InMemoryCharges struct {
	mu     sync.RWMutex
	byID   map[id.ChargeID]*models.Charge
	byPlan map[id.PlanExecutionID]id.ChargeID
}

func NewInMemoryCharges() *InMemoryCharges {
	return &InMemoryCharges{
		byID:   make(map[id.ChargeID]*models.Charge),
		byPlan: make(map[id.PlanExecutionID]id.ChargeID),
	}
}

func (s *InMemoryCharges) Create(_ context.Context, charge *models.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPlan[charge.PlanExecutionID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[charge.ID]; ok {
		return sentinel.ErrConflict
	}

	c := *charge
	s.byID[charge.ID] = &c
	s.byPlan[charge.PlanExecutionID] = charge.ID
	return nil
}

func (s *InMemoryCharges) FindByID(_ context.Context, chargeID id.ChargeID) (*models.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	charge, ok := s.byID[chargeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *charge
	return &c, nil
}

func (s *InMemoryCharges) FindByPlanExecution(_ context.Context, planExecutionID id.PlanExecutionID) (*models.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chargeID, ok := s.byPlan[planExecutionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *s.byID[chargeID]
	return &c, nil
}

func (s *InMemoryCharges) UpdateResult(_ context.Context, chargeID id.ChargeID, status models.ChargeStatus, processorRef, failureReason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.byID[chargeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	charge.Status = status
	charge.ProcessorRef = processorRef
	charge.FailureReason = failureReason
	charge.UpdatedAt = at
	return nil
}

// InMemoryPlanExecutions is the matching map store for plan executions.
type InMemoryPlanExecutions struct {
	mu    sync.RWMutex
	plans map[id.PlanExecutionID]*models.PlanExecution
}

func NewInMemoryPlanExecutions() *InMemoryPlanExecutions {
	return &InMemoryPlanExecutions{plans: make(map[id.PlanExecutionID]*models.PlanExecution)}
}

func (s *InMemoryPlanExecutions) Create(_ context.Context, plan *models.PlanExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[plan.ID]; ok {
		return sentinel.ErrConflict
	}
	p := *plan
	s.plans[plan.ID] = &p
	return nil
}

func (s *InMemoryPlanExecutions) FindByID(_ context.Context, planExecutionID id.PlanExecutionID) (*models.PlanExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[planExecutionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := *plan
	return &p, nil
}

func (s *InMemoryPlanExecutions) UpdateStatus(_ context.Context, planExecutionID id.PlanExecutionID, status models.PlanStatus, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planExecutionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	plan.Status = status
	plan.CompletedAt = &completedAt
	return nil
}
