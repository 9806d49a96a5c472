// Package models holds the billing domain records.
package models

import (
	"time"

	id "procura/pkg/domain"
)

// PlanStatus is the terminal state of a plan execution as reported by the
// orchestrator. Charges are only raised against successful executions.
type PlanStatus string

const (
	PlanPending PlanStatus = "pending"
	PlanSuccess PlanStatus = "success"
	PlanFailed  PlanStatus = "failed"
)

// PlanExecution is one completed (or attempted) run of an agent plan, the
// unit a charge is keyed on.
type PlanExecution struct {
	ID          id.PlanExecutionID
	UserID      id.UserID
	MandateID   id.MandateID
	Provider    id.Provider
	Tool        string
	AmountCents int64
	Currency    string
	Status      PlanStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ChargeStatus tracks one charge attempt. A pending row is the idempotency
// reservation written before the processor is called.
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
)

// Charge records the single billing attempt for a plan execution. There is
// at most one per plan execution id, whatever its outcome.
type Charge struct {
	ID              id.ChargeID
	PlanExecutionID id.PlanExecutionID
	UserID          id.UserID
	MandateID       id.MandateID
	AmountCents     int64
	Currency        string
	Status          ChargeStatus
	ProcessorRef    string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
