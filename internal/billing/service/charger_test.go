package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/billing/models"
	"procura/internal/billing/store"
	mandatesvc "procura/internal/mandate/service"
	mandatestore "procura/internal/mandate/store"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
)

type fakeProcessor struct {
	calls int
	ref   string
	err   error
}

func (p *fakeProcessor) Charge(_ context.Context, _ ChargeRequest) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.ref, nil
}

type chargerFixture struct {
	charges   *store.InMemoryCharges
	plans     *store.InMemoryPlanExecutions
	issuer    *mandatesvc.Issuer
	processor *fakeProcessor
	charger   *Charger
}

func newChargerFixture(t *testing.T) *chargerFixture {
	t.Helper()

	signer, err := token.NewSigner([]byte("charger-test-secret"), "HS256", "procura", "procura-agents")
	require.NoError(t, err)

	mandates := mandatestore.NewInMemory()
	issuer := mandatesvc.NewIssuer(signer, mandates, mandatesvc.Config{
		DefaultScopes:         []string{"scp:login"},
		TTL:                   24 * time.Hour,
		DefaultMaxAmountCents: 50000,
	})
	verifier := mandatesvc.NewVerifier(signer)

	f := &chargerFixture{
		charges:   store.NewInMemoryCharges(),
		plans:     store.NewInMemoryPlanExecutions(),
		issuer:    issuer,
		processor: &fakeProcessor{ref: "pi_test_123"},
	}
	f.charger = NewCharger(f.charges, f.plans, mandates, verifier, f.processor)
	return f
}

func (f *chargerFixture) seedPlan(t *testing.T, planID id.PlanExecutionID, status models.PlanStatus, amountCents int64, scopes ...string) *models.PlanExecution {
	t.Helper()

	if len(scopes) == 0 {
		scopes = []string{"scp:pay"}
	}
	mandate, err := f.issuer.CreateMandate(context.Background(), id.NewUserID(), "skiclubpro", scopes)
	require.NoError(t, err)

	plan := &models.PlanExecution{
		ID:          planID,
		UserID:      mandate.UserID,
		MandateID:   mandate.ID,
		Provider:    "skiclubpro",
		Tool:        "register",
		AmountCents: amountCents,
		Currency:    "USD",
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.plans.Create(context.Background(), plan))
	return plan
}

func TestChargeOnSuccess(t *testing.T) {
	f := newChargerFixture(t)
	plan := f.seedPlan(t, "plan-1", models.PlanSuccess, 30000)

	charge, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.NoError(t, err)

	assert.Equal(t, models.ChargeSucceeded, charge.Status)
	assert.Equal(t, "pi_test_123", charge.ProcessorRef)
	assert.Equal(t, int64(30000), charge.AmountCents)
	assert.Equal(t, plan.UserID, charge.UserID)
	assert.Equal(t, plan.MandateID, charge.MandateID)
	assert.Equal(t, 1, f.processor.calls)
}

func TestChargeOnSuccessIsIdempotent(t *testing.T) {
	f := newChargerFixture(t)
	f.seedPlan(t, "plan-1", models.PlanSuccess, 30000)

	first, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.NoError(t, err)

	second, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.ProcessorRef, second.ProcessorRef)
	assert.Equal(t, 1, f.processor.calls, "second call must not reach the processor")
}

func TestChargeRejectsNonSuccessfulPlan(t *testing.T) {
	f := newChargerFixture(t)

	for _, status := range []models.PlanStatus{models.PlanPending, models.PlanFailed} {
		planID := id.PlanExecutionID("plan-" + string(status))
		f.seedPlan(t, planID, status, 30000)

		_, err := f.charger.ChargeOnSuccess(context.Background(), planID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState), "status %s", status)

		_, findErr := f.charges.FindByPlanExecution(context.Background(), planID)
		assert.ErrorIs(t, findErr, sentinel.ErrNotFound, "no charge row for %s plan", status)
	}
	assert.Zero(t, f.processor.calls)
}

func TestChargeUnknownPlan(t *testing.T) {
	f := newChargerFixture(t)

	_, err := f.charger.ChargeOnSuccess(context.Background(), "no-such-plan")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Zero(t, f.processor.calls)
}

func TestChargeRecordsProcessorFailureAsValue(t *testing.T) {
	f := newChargerFixture(t)
	f.seedPlan(t, "plan-1", models.PlanSuccess, 30000)
	f.processor.err = errors.New("card_declined")

	charge, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.NoError(t, err, "a processor rejection is an outcome, not an error")

	assert.Equal(t, models.ChargeFailed, charge.Status)
	assert.Equal(t, "card_declined", charge.FailureReason)
	assert.Empty(t, charge.ProcessorRef)

	// The failed outcome is final: no retry on a second call.
	f.processor.err = nil
	again, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, charge.ID, again.ID)
	assert.Equal(t, models.ChargeFailed, again.Status)
	assert.Equal(t, 1, f.processor.calls)
}

func TestChargeRejectsAmountOverMandateCap(t *testing.T) {
	f := newChargerFixture(t)
	f.seedPlan(t, "plan-1", models.PlanSuccess, 60000)

	_, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAmountExceeded))

	_, findErr := f.charges.FindByPlanExecution(context.Background(), "plan-1")
	assert.ErrorIs(t, findErr, sentinel.ErrNotFound, "rejected charge leaves no row")
	assert.Zero(t, f.processor.calls)
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	f := newChargerFixture(t)
	f.seedPlan(t, "plan-1", models.PlanSuccess, 0)

	_, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	assert.Zero(t, f.processor.calls)
}

func TestChargeRequiresPayScope(t *testing.T) {
	f := newChargerFixture(t)
	f.seedPlan(t, "plan-1", models.PlanSuccess, 30000, "scp:login")

	_, err := f.charger.ChargeOnSuccess(context.Background(), "plan-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeMissing))
	assert.Zero(t, f.processor.calls)
}
