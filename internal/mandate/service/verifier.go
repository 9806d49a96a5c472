package service

import (
	"context"

	"procura/internal/mandate/metrics"
	"procura/internal/mandate/models"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

// Verifier performs the stateless mandate check: signature, issuer/audience,
// validity window, scope coverage, and optional amount cap — in that order,
// failing on the first violation.
//
// It deliberately does not consult the mandate store, so store-side
// revocation is invisible here. Whether every verification should pay a
// store round-trip is an open question recorded in DESIGN.md.
type Verifier struct {
	signer  *token.Signer
	metrics *metrics.Metrics
}

type VerifierOption func(*Verifier)

func WithVerifierMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *Verifier) { v.metrics = m }
}

func NewVerifier(signer *token.Signer, opts ...VerifierOption) *Verifier {
	v := &Verifier{signer: signer}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyOption adjusts a single verification call.
type VerifyOption func(*verifyParams)

type verifyParams struct {
	amountCents int64
	hasAmount   bool
}

// WithAmountCents asks the verifier to also check the amount against the
// mandate's spending cap.
func WithAmountCents(cents int64) VerifyOption {
	return func(p *verifyParams) {
		p.amountCents = cents
		p.hasAmount = true
	}
}

// Verify checks the signed token against the required scopes and returns the
// full payload annotated verified on success.
func (v *Verifier) Verify(ctx context.Context, signed string, required id.Scopes, opts ...VerifyOption) (*token.Claims, error) {
	var params verifyParams
	for _, opt := range opts {
		opt(&params)
	}

	now := requestcontext.Now(ctx)

	claims, err := v.signer.Parse(signed, now)
	if err != nil {
		v.countFailure("invalid_token")
		return nil, err
	}

	if claims.CredentialType != string(models.CredentialSignedToken) {
		v.countFailure("unsupported_credential_type")
		return nil, dErrors.Newf(dErrors.CodeInvalidMandate, "unsupported credential type %q", claims.CredentialType)
	}

	from, until, err := claims.Window()
	if err != nil {
		v.countFailure("malformed_window")
		return nil, err
	}
	if now.Before(from) {
		v.countFailure("not_yet_valid")
		return nil, dErrors.New(dErrors.CodeInvalidMandate, "mandate is not yet valid")
	}
	if now.After(until) {
		v.countFailure("expired")
		return nil, dErrors.New(dErrors.CodeInvalidMandate, "mandate has expired")
	}

	if missing, ok := claims.Scopes().FirstMissing(required); ok {
		v.countFailure("scope_missing")
		return nil, dErrors.Newf(dErrors.CodeScopeMissing, "mandate does not grant scope %q", missing)
	}

	if params.hasAmount {
		limit := claims.MaxAmountCents
		if limit <= 0 {
			v.countFailure("amount_exceeded")
			return nil, dErrors.Newf(dErrors.CodeAmountExceeded, "mandate carries no spending cap for amount %d", params.amountCents)
		}
		if params.amountCents > limit {
			v.countFailure("amount_exceeded")
			return nil, dErrors.Newf(dErrors.CodeAmountExceeded, "amount %d exceeds mandate cap %d", params.amountCents, limit)
		}
	}

	claims.Verified = true
	return claims, nil
}

func (v *Verifier) countFailure(reason string) {
	if v.metrics != nil {
		v.metrics.VerificationFailures.WithLabelValues(reason).Inc()
	}
}
