package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mandatesvc "procura/internal/mandate/service"
	mandatestore "procura/internal/mandate/store"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

type recorderFixture struct {
	store    *countingStore
	mandates mandatestore.Store
	issuer   *mandatesvc.Issuer
	recorder *Recorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()

	signer, err := token.NewSigner([]byte("recorder-test-secret"), "HS256", "procura", "procura-agents")
	require.NoError(t, err)

	mandates := mandatestore.NewInMemory()
	issuer := mandatesvc.NewIssuer(signer, mandates, mandatesvc.Config{
		DefaultScopes:         []string{"scp:login"},
		TTL:                   24 * time.Hour,
		DefaultMaxAmountCents: 50000,
	})
	verifier := mandatesvc.NewVerifier(signer)

	store := &countingStore{Store: NewInMemoryStore()}
	recorder := NewRecorder(store, WithMandateVerification(mandates, verifier))

	return &recorderFixture{store: store, mandates: mandates, issuer: issuer, recorder: recorder}
}

func (f *recorderFixture) issueMandate(t *testing.T, scopes ...string) id.MandateID {
	t.Helper()
	mandate, err := f.issuer.CreateMandate(context.Background(), id.NewUserID(), "skiclubpro", scopes)
	require.NoError(t, err)
	return mandate.ID
}

// countingStore verifies the one-insert, one-seal lifecycle.
type countingStore struct {
	Store
	inserts int
	seals   int
}

func (s *countingStore) Insert(ctx context.Context, entry *Entry) error {
	s.inserts++
	return s.Store.Insert(ctx, entry)
}

func (s *countingStore) Seal(ctx context.Context, entryID id.EntryID, decision Decision, result any, sealedAt time.Time) error {
	s.seals++
	return s.Store.Seal(ctx, entryID, decision, result, sealedAt)
}

func TestRecordSealsAllowedEntryWithRedactedResult(t *testing.T) {
	f := newRecorderFixture(t)
	mandateID := f.issueMandate(t, "scp:login")

	result, err := f.recorder.Record(context.Background(), Call{
		Tool:            "login",
		PlanExecutionID: "plan-1",
		MandateID:       mandateID,
		RequiredScopes:  mustScopes(t, "scp:login"),
		Args:            map[string]any{"provider": "skiclubpro"},
	}, func(ctx context.Context) (any, error) {
		return map[string]any{"session": "ok", "password": "hunter2"}, nil
	})
	require.NoError(t, err)

	// The caller sees the unredacted result.
	raw := result.(map[string]any)
	assert.Equal(t, "hunter2", raw["password"])

	entries, err := f.store.ListByPlanExecution(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, DecisionAllowed, entry.Decision)
	assert.Equal(t, "login", entry.Tool)
	assert.Equal(t, mandateID, entry.MandateID)
	require.NotNil(t, entry.SealedAt)

	stored := entry.Result.(map[string]any)
	assert.Equal(t, "ok", stored["session"])
	assert.Equal(t, RedactedValue, stored["password"])

	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, 1, f.store.seals)
}

func TestRecordPreservesActionErrorAndSealsDenied(t *testing.T) {
	f := newRecorderFixture(t)

	actionErr := errors.New("provider timeout")
	result, err := f.recorder.Record(context.Background(), Call{
		Tool:            "check_availability",
		PlanExecutionID: "plan-2",
	}, func(ctx context.Context) (any, error) {
		return nil, actionErr
	})

	require.ErrorIs(t, err, actionErr)
	assert.Nil(t, result)

	entries, err := f.store.ListByPlanExecution(context.Background(), "plan-2")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, DecisionDenied, entry.Decision)
	stored := entry.Result.(map[string]any)
	assert.Equal(t, "provider timeout", stored["error"])

	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, 1, f.store.seals)
}

func TestRecordDeniesMissingScopeBeforeActionRuns(t *testing.T) {
	f := newRecorderFixture(t)
	mandateID := f.issueMandate(t, "scp:login")

	ran := false
	_, err := f.recorder.Record(context.Background(), Call{
		Tool:            "register",
		PlanExecutionID: "plan-3",
		MandateID:       mandateID,
		RequiredScopes:  mustScopes(t, "user:write:children"),
	}, func(ctx context.Context) (any, error) {
		ran = true
		return "should not happen", nil
	})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeMissing))
	assert.Contains(t, err.Error(), "mandate verification failed")
	assert.False(t, ran)

	entries, listErr := f.store.ListByPlanExecution(context.Background(), "plan-3")
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	assert.Equal(t, DecisionDenied, entries[0].Decision)

	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, 1, f.store.seals)
}

func TestRecordDeniesAmountOverCap(t *testing.T) {
	f := newRecorderFixture(t)
	mandateID := f.issueMandate(t, "scp:pay")

	ran := false
	_, err := f.recorder.Record(context.Background(), Call{
		Tool:            "register",
		PlanExecutionID: "plan-4",
		MandateID:       mandateID,
		RequiredScopes:  mustScopes(t, "scp:pay"),
		AmountCents:     60000,
	}, func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAmountExceeded))
	assert.False(t, ran)
}

func TestRecordSkipsVerificationWithoutMandate(t *testing.T) {
	f := newRecorderFixture(t)

	result, err := f.recorder.Record(context.Background(), Call{
		Tool:            "check_availability",
		PlanExecutionID: "plan-5",
		RequiredScopes:  mustScopes(t, "scp:login"),
	}, func(ctx context.Context) (any, error) {
		return map[string]any{"available": true}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, result)

	entries, err := f.store.ListByPlanExecution(context.Background(), "plan-5")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DecisionAllowed, entries[0].Decision)
}

func TestRecordDeniesUnknownMandate(t *testing.T) {
	f := newRecorderFixture(t)

	_, err := f.recorder.Record(context.Background(), Call{
		Tool:            "login",
		PlanExecutionID: "plan-6",
		MandateID:       id.NewMandateID(),
		RequiredScopes:  mustScopes(t, "scp:login"),
	}, func(ctx context.Context) (any, error) {
		return nil, nil
	})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
}

func mustScopes(t *testing.T, raw ...string) id.Scopes {
	t.Helper()
	return id.NewScopes(raw)
}
