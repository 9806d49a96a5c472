// Package service implements the idempotent charge flow: at most one
// processor attempt per plan execution, with precondition checks that abort
// before any side effect.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bMetrics "procura/internal/billing/metrics"
	"procura/internal/billing/models"
	"procura/internal/billing/store"
	mandateModels "procura/internal/mandate/models"
	mandatesvc "procura/internal/mandate/service"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
	"procura/pkg/requestcontext"
)

// scopeCharge is the capability a mandate must grant before money moves.
const scopeCharge = "scp:pay"

// ChargeRequest is what the processor needs to move money.
type ChargeRequest struct {
	PlanExecutionID id.PlanExecutionID
	UserID          id.UserID
	MandateID       id.MandateID
	AmountCents     int64
	Currency        string
}

// PaymentProcessor is the external payment rail. A returned error means the
// attempt reached the processor and was rejected; it is recorded, not
// retried.
type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (processorRef string, err error)
}

// MandateSource resolves the mandate a plan execution was authorized under.
type MandateSource interface {
	FindByID(ctx context.Context, mandateID id.MandateID) (*mandateModels.Mandate, error)
}

// MandateVerifier checks the mandate's signed token, scope, and cap.
type MandateVerifier interface {
	Verify(ctx context.Context, signed string, required id.Scopes, opts ...mandatesvc.VerifyOption) (*token.Claims, error)
}

// Charger raises at most one charge per plan execution. The pending charge
// row is the idempotency reservation: it is written before the processor is
// called, and the unique index on plan_execution_id settles any race.
type Charger struct {
	charges   store.ChargeStore
	plans     store.PlanExecutionStore
	mandates  MandateSource
	verifier  MandateVerifier
	processor PaymentProcessor
	logger    *slog.Logger
	metrics   *bMetrics.Metrics
}

type ChargerOption func(*Charger)

func WithChargerLogger(logger *slog.Logger) ChargerOption {
	return func(c *Charger) { c.logger = logger }
}

func WithChargerMetrics(m *bMetrics.Metrics) ChargerOption {
	return func(c *Charger) { c.metrics = m }
}

func NewCharger(charges store.ChargeStore, plans store.PlanExecutionStore, mandates MandateSource, verifier MandateVerifier, processor PaymentProcessor, opts ...ChargerOption) *Charger {
	c := &Charger{
		charges:   charges,
		plans:     plans,
		mandates:  mandates,
		verifier:  verifier,
		processor: processor,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChargeOnSuccess charges the user for a successful plan execution. Calling
// it again for the same plan execution returns the recorded charge without a
// second processor attempt. A processor rejection is a recorded outcome, not
// an error: the failed charge comes back with a nil error and the plan
// execution stays settled.
func (c *Charger) ChargeOnSuccess(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.Charge, error) {
	if planExecutionID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "plan execution id must not be empty")
	}

	plan, err := c.plans.FindByID(ctx, planExecutionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.countPrecondition("plan_not_found")
		return nil, dErrors.Newf(dErrors.CodeNotFound, "plan execution %q not found", planExecutionID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plan execution")
	}

	if plan.Status != models.PlanSuccess {
		c.countPrecondition("plan_not_successful")
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "plan execution %q is %s, only successful executions are charged", planExecutionID, plan.Status)
	}

	if existing, err := c.charges.FindByPlanExecution(ctx, planExecutionID); err == nil {
		if c.metrics != nil {
			c.metrics.IdempotentHits.Inc()
		}
		c.logEvent(ctx, "charge_idempotent_hit", existing)
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up existing charge")
	}

	if plan.AmountCents <= 0 {
		c.countPrecondition("invalid_amount")
		return nil, dErrors.Newf(dErrors.CodeInvalidAmount, "plan execution %q has non-positive amount %d", planExecutionID, plan.AmountCents)
	}

	if err := c.verifyMandate(ctx, plan); err != nil {
		c.countPrecondition("mandate_rejected")
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	charge := &models.Charge{
		ID:              id.NewChargeID(),
		PlanExecutionID: plan.ID,
		UserID:          plan.UserID,
		MandateID:       plan.MandateID,
		AmountCents:     plan.AmountCents,
		Currency:        plan.Currency,
		Status:          models.ChargePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = c.charges.Create(ctx, charge)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost the insert race to a concurrent call; its row is the answer.
		existing, findErr := c.charges.FindByPlanExecution(ctx, planExecutionID)
		if findErr != nil {
			return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load winning charge")
		}
		if c.metrics != nil {
			c.metrics.IdempotentHits.Inc()
		}
		return existing, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve charge")
	}

	procStart := time.Now()
	processorRef, procErr := c.processor.Charge(ctx, ChargeRequest{
		PlanExecutionID: plan.ID,
		UserID:          plan.UserID,
		MandateID:       plan.MandateID,
		AmountCents:     plan.AmountCents,
		Currency:        plan.Currency,
	})
	if c.metrics != nil {
		c.metrics.ProcessorDuration.Observe(time.Since(procStart).Seconds())
	}

	settledAt := requestcontext.Now(ctx).UTC()
	if procErr != nil {
		charge.Status = models.ChargeFailed
		charge.FailureReason = procErr.Error()
	} else {
		charge.Status = models.ChargeSucceeded
		charge.ProcessorRef = processorRef
	}
	charge.UpdatedAt = settledAt

	if err := c.charges.UpdateResult(ctx, charge.ID, charge.Status, charge.ProcessorRef, charge.FailureReason, settledAt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record charge outcome")
	}

	if c.metrics != nil {
		c.metrics.ChargesProcessed.WithLabelValues(string(charge.Status)).Inc()
	}
	c.logEvent(ctx, fmt.Sprintf("charge_%s", charge.Status), charge)
	return charge, nil
}

func (c *Charger) verifyMandate(ctx context.Context, plan *models.PlanExecution) error {
	if plan.MandateID.IsNil() {
		return dErrors.Newf(dErrors.CodeInvalidMandate, "plan execution %q carries no mandate", plan.ID)
	}

	mandate, err := c.mandates.FindByID(ctx, plan.MandateID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeInvalidMandate, "mandate %s not found", plan.MandateID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mandate")
	}

	_, err = c.verifier.Verify(ctx, mandate.Token, id.NewScopes([]string{scopeCharge}),
		mandatesvc.WithAmountCents(plan.AmountCents))
	return err
}

func (c *Charger) countPrecondition(reason string) {
	if c.metrics != nil {
		c.metrics.PreconditionFailures.WithLabelValues(reason).Inc()
	}
}

func (c *Charger) logEvent(ctx context.Context, event string, charge *models.Charge) {
	c.logger.InfoContext(ctx, "charge processed",
		"charge_id", charge.ID.String(),
		"plan_execution_id", string(charge.PlanExecutionID),
		"amount_cents", charge.AmountCents,
		"status", string(charge.Status),
		"event", event,
		"log_type", "audit",
	)
}
