// Package store persists charges and plan executions.
package store

import (
	"context"
	"time"

	"procura/internal/billing/models"
	id "procura/pkg/domain"
)

// ChargeStore enforces the one-charge-per-plan-execution rule at the storage
// layer: Create must fail with sentinel.ErrConflict when a charge for the
// same plan execution already exists.
type ChargeStore interface {
	Create(ctx context.Context, charge *models.Charge) error
	FindByID(ctx context.Context, chargeID id.ChargeID) (*models.Charge, error)
	FindByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.Charge, error)
	UpdateResult(ctx context.Context, chargeID id.ChargeID, status models.ChargeStatus, processorRef, failureReason string, at time.Time) error
}

// PlanExecutionStore reads and records plan executions.
type PlanExecutionStore interface {
	Create(ctx context.Context, plan *models.PlanExecution) error
	FindByID(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.PlanExecution, error)
	UpdateStatus(ctx context.Context, planExecutionID id.PlanExecutionID, status models.PlanStatus, completedAt time.Time) error
}
