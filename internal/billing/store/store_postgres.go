package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"procura/internal/billing/models"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// Schema is the billing DDL. The unique index on plan_execution_id is the
// idempotency backstop: a concurrent second charge attempt loses the insert
// race no matter what the service layer saw.
const Schema = `
CREATE TABLE IF NOT EXISTS plan_executions (
    id TEXT PRIMARY KEY,
    user_id UUID NOT NULL,
    mandate_id UUID NOT NULL,
    provider TEXT NOT NULL,
    tool TEXT NOT NULL DEFAULT '',
    amount_cents BIGINT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS charges (
    id UUID PRIMARY KEY,
    plan_execution_id TEXT NOT NULL,
    user_id UUID NOT NULL,
    mandate_id UUID NOT NULL,
    amount_cents BIGINT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    status TEXT NOT NULL,
    processor_ref TEXT NOT NULL DEFAULT '',
    failure_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_charges_plan_execution_id ON charges (plan_execution_id);
`

const chargeColumns = `id, plan_execution_id, user_id, mandate_id, amount_cents, currency, status, processor_ref, failure_reason, created_at, updated_at`

type PostgresCharges struct {
	db *sql.DB
}

func NewPostgresCharges(db *sql.DB) *PostgresCharges {
	return &PostgresCharges{db: db}
}

func (s *PostgresCharges) Create(ctx context.Context, charge *models.Charge) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO charges (`+chargeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING`,
		uuid.UUID(charge.ID), string(charge.PlanExecutionID), uuid.UUID(charge.UserID),
		uuid.UUID(charge.MandateID), charge.AmountCents, charge.Currency, string(charge.Status),
		charge.ProcessorRef, charge.FailureReason, charge.CreatedAt, charge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert charge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert charge rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresCharges) FindByID(ctx context.Context, chargeID id.ChargeID) (*models.Charge, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chargeColumns+` FROM charges WHERE id = $1`, uuid.UUID(chargeID))
	return scanCharge(row)
}

func (s *PostgresCharges) FindByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.Charge, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chargeColumns+` FROM charges WHERE plan_execution_id = $1`, string(planExecutionID))
	return scanCharge(row)
}

func (s *PostgresCharges) UpdateResult(ctx context.Context, chargeID id.ChargeID, status models.ChargeStatus, processorRef, failureReason string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE charges
		SET status = $2, processor_ref = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(chargeID), string(status), processorRef, failureReason, at,
	)
	if err != nil {
		return fmt.Errorf("update charge result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update charge rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanCharge(row *sql.Row) (*models.Charge, error) {
	var (
		charge     models.Charge
		chargeID   uuid.UUID
		planExecID string
		userID     uuid.UUID
		mandateID  uuid.UUID
		status     string
	)
	err := row.Scan(&chargeID, &planExecID, &userID, &mandateID, &charge.AmountCents,
		&charge.Currency, &status, &charge.ProcessorRef, &charge.FailureReason,
		&charge.CreatedAt, &charge.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan charge: %w", err)
	}

	charge.ID = id.ChargeID(chargeID)
	charge.PlanExecutionID = id.PlanExecutionID(planExecID)
	charge.UserID = id.UserID(userID)
	charge.MandateID = id.MandateID(mandateID)
	charge.Status = models.ChargeStatus(status)
	return &charge, nil
}

type PostgresPlanExecutions struct {
	db *sql.DB
}

func NewPostgresPlanExecutions(db *sql.DB) *PostgresPlanExecutions {
	return &PostgresPlanExecutions{db: db}
}

func (s *PostgresPlanExecutions) Create(ctx context.Context, plan *models.PlanExecution) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_executions (id, user_id, mandate_id, provider, tool, amount_cents, currency, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		string(plan.ID), uuid.UUID(plan.UserID), uuid.UUID(plan.MandateID), string(plan.Provider),
		plan.Tool, plan.AmountCents, plan.Currency, string(plan.Status), plan.CreatedAt, plan.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert plan execution rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresPlanExecutions) FindByID(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.PlanExecution, error) {
	var (
		plan      models.PlanExecution
		planID    string
		userID    uuid.UUID
		mandateID uuid.UUID
		provider  string
		status    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, mandate_id, provider, tool, amount_cents, currency, status, created_at, completed_at
		FROM plan_executions WHERE id = $1`, string(planExecutionID)).
		Scan(&planID, &userID, &mandateID, &provider, &plan.Tool, &plan.AmountCents,
			&plan.Currency, &status, &plan.CreatedAt, &plan.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find plan execution: %w", err)
	}

	plan.ID = id.PlanExecutionID(planID)
	plan.UserID = id.UserID(userID)
	plan.MandateID = id.MandateID(mandateID)
	plan.Provider = id.Provider(provider)
	plan.Status = models.PlanStatus(status)
	return &plan, nil
}

func (s *PostgresPlanExecutions) UpdateStatus(ctx context.Context, planExecutionID id.PlanExecutionID, status models.PlanStatus, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE plan_executions SET status = $2, completed_at = $3 WHERE id = $1`,
		string(planExecutionID), string(status), completedAt,
	)
	if err != nil {
		return fmt.Errorf("update plan execution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan execution rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
