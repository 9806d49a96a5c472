package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"procura/internal/audit/metrics"
	"procura/internal/mandate/models"
	mandatesvc "procura/internal/mandate/service"
	"procura/internal/mandate/token"
	"procura/pkg/attrs"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

// Action is the privileged operation wrapped by the recorder. Its return
// value is redacted before it is written to the audit trail; the caller
// receives the original, unredacted value.
type Action func(ctx context.Context) (any, error)

// Call describes one privileged invocation. AmountCents above zero asks the
// verifier to also check the mandate's spending cap.
type Call struct {
	Tool            string
	PlanExecutionID id.PlanExecutionID
	MandateID       id.MandateID
	RequiredScopes  id.Scopes
	AmountCents     int64
	Args            map[string]any
}

// MandateSource resolves a mandate record so the recorder can verify its
// signed token. The mandate store satisfies it.
type MandateSource interface {
	FindByID(ctx context.Context, mandateID id.MandateID) (*models.Mandate, error)
}

// MandateVerifier is the stateless token check the recorder runs before a
// scoped action.
type MandateVerifier interface {
	Verify(ctx context.Context, signed string, required id.Scopes, opts ...mandatesvc.VerifyOption) (*token.Claims, error)
}

// Sink receives sealed entries for downstream delivery.
type Sink interface {
	Publish(ctx context.Context, entry *Entry) error
}

// Recorder wraps privileged actions with the audit lifecycle: verify the
// mandate when scopes are required, insert a pending entry before the action
// runs, then seal the entry with the decision and the redacted result.
// Exactly one entry is inserted and sealed per call, on every path.
type Recorder struct {
	store    Store
	mandates MandateSource
	verifier MandateVerifier
	sink     Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type RecorderOption func(*Recorder)

// WithMandateVerification enables scope enforcement for calls that carry a
// mandate. Without it, any call requiring scopes is denied.
func WithMandateVerification(source MandateSource, verifier MandateVerifier) RecorderOption {
	return func(r *Recorder) {
		r.mandates = source
		r.verifier = verifier
	}
}

func WithSink(sink Sink) RecorderOption {
	return func(r *Recorder) { r.sink = sink }
}

func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

func WithRecorderMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs one privileged action under audit. Verification failures are
// recorded as denied entries and surface as a wrapped error; action failures
// are recorded as denied entries and surface as the action's own error,
// unchanged.
func (r *Recorder) Record(ctx context.Context, call Call, action Action) (any, error) {
	entry := &Entry{
		ID:              id.NewEntryID(),
		PlanExecutionID: call.PlanExecutionID,
		MandateID:       call.MandateID,
		Tool:            call.Tool,
		Args:            call.Args,
		Decision:        DecisionPending,
		CreatedAt:       requestcontext.Now(ctx).UTC(),
	}

	if len(call.RequiredScopes) > 0 && !call.MandateID.IsNil() {
		if err := r.verifyMandate(ctx, call); err != nil {
			r.recordDenied(ctx, entry, err)
			return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "mandate verification failed")
		}
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}

	result, actionErr := action(ctx)
	sealedAt := requestcontext.Now(ctx).UTC()

	if actionErr != nil {
		r.seal(ctx, entry, DecisionDenied, map[string]any{"error": actionErr.Error()}, sealedAt)
		return nil, actionErr
	}

	r.seal(ctx, entry, DecisionAllowed, redactForStorage(result), sealedAt)
	return result, nil
}

func (r *Recorder) verifyMandate(ctx context.Context, call Call) error {
	if r.verifier == nil || r.mandates == nil {
		return dErrors.New(dErrors.CodeInternal, "mandate verification is not configured")
	}

	mandate, err := r.mandates.FindByID(ctx, call.MandateID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidMandate, "mandate lookup failed")
	}

	var opts []mandatesvc.VerifyOption
	if call.AmountCents > 0 {
		opts = append(opts, mandatesvc.WithAmountCents(call.AmountCents))
	}
	_, err = r.verifier.Verify(ctx, mandate.Token, call.RequiredScopes, opts...)
	return err
}

// recordDenied writes the full insert-then-seal lifecycle for a call that
// never ran, so denied attempts are as queryable as completed ones.
func (r *Recorder) recordDenied(ctx context.Context, entry *Entry, cause error) {
	if err := r.store.Insert(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "failed to record denied audit entry",
			"error", err, "tool", entry.Tool, "plan_execution_id", string(entry.PlanExecutionID))
		return
	}
	r.seal(ctx, entry, DecisionDenied, map[string]any{"error": cause.Error()}, requestcontext.Now(ctx).UTC())
}

func (r *Recorder) seal(ctx context.Context, entry *Entry, decision Decision, result any, sealedAt time.Time) {
	if err := r.store.Seal(ctx, entry.ID, decision, result, sealedAt); err != nil {
		if r.metrics != nil {
			r.metrics.SealFailures.Inc()
		}
		r.logger.ErrorContext(ctx, "failed to seal audit entry",
			"error", err, "entry_id", entry.ID.String(), "tool", entry.Tool, "decision", string(decision))
		return
	}

	r.logAudit(ctx, "audit_entry_sealed",
		"entry_id", entry.ID.String(),
		"tool", entry.Tool,
		"plan_execution_id", string(entry.PlanExecutionID),
		"decision", string(decision),
	)

	if r.sink != nil {
		sealed := *entry
		sealed.Decision = decision
		sealed.Result = result
		sealed.SealedAt = &sealedAt
		if err := r.sink.Publish(ctx, &sealed); err != nil {
			if r.metrics != nil {
				r.metrics.PublishFailures.Inc()
			}
			r.logger.ErrorContext(ctx, "failed to publish sealed audit entry",
				"error", err, "entry_id", entry.ID.String())
		}
	}
}

func (r *Recorder) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	r.logger.InfoContext(ctx, event, args...)

	if r.metrics != nil {
		if decision := attrs.ExtractString(attributes, "decision"); decision != "" {
			r.metrics.EntriesSealed.WithLabelValues(decision).Inc()
		}
	}
}

// redactForStorage normalizes an action result into a plain JSON tree and
// redacts it. Results that cannot be encoded are replaced with a note rather
// than failing the call after its side effects already happened.
func redactForStorage(result any) any {
	if result == nil {
		return nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"encoding_error": err.Error()}
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return map[string]any{"encoding_error": err.Error()}
	}
	return Redact(tree)
}
