package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"procura/internal/mandate/metrics"
	"procura/internal/mandate/models"
	"procura/internal/mandate/store"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
	"procura/pkg/requestcontext"
)

// Config carries the issuance defaults resolved at startup.
type Config struct {
	DefaultScopes         []string
	TTL                   time.Duration
	DefaultMaxAmountCents int64
}

// CreateOptions are the optional fields a refresh request may pin on a new
// mandate.
type CreateOptions struct {
	ChildID        string
	ProgramRef     string
	MaxAmountCents int64
}

// Issuer creates and persists mandates. Tokens are minted through the signer
// and never returned unless the record was persisted.
type Issuer struct {
	signer   *token.Signer
	mandates store.Store
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type IssuerOption func(*Issuer)

func WithIssuerLogger(logger *slog.Logger) IssuerOption {
	return func(i *Issuer) { i.logger = logger }
}

func WithIssuerMetrics(m *metrics.Metrics) IssuerOption {
	return func(i *Issuer) { i.metrics = m }
}

// NewIssuer constructs an Issuer.
func NewIssuer(signer *token.Signer, mandates store.Store, cfg Config, opts ...IssuerOption) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = 1440 * time.Minute
	}
	iss := &Issuer{signer: signer, mandates: mandates, cfg: cfg}
	for _, opt := range opts {
		opt(iss)
	}
	return iss
}

// CreateMandate issues and persists a mandate whose scope set is the
// deduplicated union of the configured default scopes and extraScopes.
// Returns the persisted record; the signed token is on it.
func (i *Issuer) CreateMandate(ctx context.Context, userID id.UserID, provider id.Provider, extraScopes []string) (*models.Mandate, error) {
	scopes := id.NewScopes(i.cfg.DefaultScopes).Union(id.NewScopes(extraScopes))
	return i.mint(ctx, userID, provider, "", scopes, CreateOptions{})
}

// CreateOrRefreshMandate returns an existing active mandate when its grant
// already covers the requested scopes, and otherwise issues a brand-new one
// carrying the full requested scope set. The boolean reports reuse. Scopes
// are never widened on an existing record; a superset request always mints.
func (i *Issuer) CreateOrRefreshMandate(ctx context.Context, userID id.UserID, provider id.Provider, orgRef string, scopes []string, opts CreateOptions) (*models.Mandate, bool, error) {
	requested := id.NewScopes(scopes)
	if len(requested) == 0 {
		return nil, false, dErrors.New(dErrors.CodeValidation, "at least one scope is required")
	}

	now := requestcontext.Now(ctx)
	existing, err := i.mandates.FindLatestActive(ctx, userID, provider, now)
	switch {
	case err == nil:
		if existing.Covers(requested) {
			if i.metrics != nil {
				i.metrics.Reused.Inc()
			}
			i.logEvent(ctx, "mandate_reused",
				"mandate_id", existing.ID.String(),
				"user_id", userID.String(),
				"provider", provider.String(),
			)
			return existing, true, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// No reusable record; fall through to mint.
	default:
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up existing mandate")
	}

	mandate, err := i.mint(ctx, userID, provider, orgRef, requested, opts)
	if err != nil {
		return nil, false, err
	}
	return mandate, false, nil
}

// mint builds, signs, and persists a new mandate. A persistence failure
// fails the whole operation so an unpersisted token can never leak out.
func (i *Issuer) mint(ctx context.Context, userID id.UserID, provider id.Provider, orgRef string, scopes id.Scopes, opts CreateOptions) (*models.Mandate, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	if provider == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "provider is required")
	}
	if len(scopes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one scope is required")
	}

	maxAmount := opts.MaxAmountCents
	if maxAmount <= 0 {
		maxAmount = i.cfg.DefaultMaxAmountCents
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	mandate := &models.Mandate{
		ID:             id.NewMandateID(),
		UserID:         userID,
		Provider:       provider,
		OrgRef:         orgRef,
		Scopes:         scopes,
		ChildID:        opts.ChildID,
		ProgramRef:     opts.ProgramRef,
		MaxAmountCents: maxAmount,
		ValidFrom:      now,
		ValidUntil:     now.Add(i.cfg.TTL),
		TimePeriod:     fmt.Sprintf("%dm", int64(i.cfg.TTL.Minutes())),
		CredentialType: models.CredentialSignedToken,
		Status:         models.StatusActive,
		CreatedAt:      now,
	}

	signed, err := i.signer.Sign(token.Claims{
		MandateID:      mandate.ID.String(),
		UserID:         userID.String(),
		Provider:       provider.String(),
		Scope:          scopes.Strings(),
		OrgRef:         orgRef,
		ChildID:        opts.ChildID,
		ProgramRef:     opts.ProgramRef,
		MaxAmountCents: maxAmount,
		ValidFrom:      mandate.ValidFrom.Format(time.RFC3339),
		ValidUntil:     mandate.ValidUntil.Format(time.RFC3339),
		TimePeriod:     mandate.TimePeriod,
		CredentialType: string(models.CredentialSignedToken),
	})
	if err != nil {
		return nil, err
	}
	mandate.Token = signed

	if err := i.mandates.Create(ctx, mandate); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist mandate")
	}

	if i.metrics != nil {
		i.metrics.Issued.Inc()
	}
	i.logEvent(ctx, "mandate_issued",
		"mandate_id", mandate.ID.String(),
		"user_id", userID.String(),
		"provider", provider.String(),
		"scopes", scopes.Strings(),
	)
	return mandate, nil
}

func (i *Issuer) logEvent(ctx context.Context, event string, attributes ...any) {
	if i.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	i.logger.InfoContext(ctx, event, args...)
}
