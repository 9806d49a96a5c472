package evidence

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"procura/internal/audit"
	billingModels "procura/internal/billing/models"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/platform/sentinel"
	"procura/pkg/requestcontext"
)

// AuditReader is the slice of the audit store the collector needs.
type AuditReader interface {
	ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*audit.Entry, error)
}

// ChargeReader resolves the charge settled for a plan execution, if any.
type ChargeReader interface {
	FindByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) (*billingModels.Charge, error)
}

// Bundle is everything recorded for one plan execution: the audit trail,
// the settled charge, and the captured assets.
type Bundle struct {
	PlanExecutionID id.PlanExecutionID
	Assets          []*Asset
	AuditEntries    []*audit.Entry
	Charge          *billingModels.Charge
}

// Service appends assets and assembles evidence bundles.
type Service struct {
	assets  Store
	entries AuditReader
	charges ChargeReader
}

func NewService(assets Store, entries AuditReader, charges ChargeReader) *Service {
	return &Service{assets: assets, entries: entries, charges: charges}
}

// Capture hashes the content and appends the asset record.
func (s *Service) Capture(ctx context.Context, planExecutionID id.PlanExecutionID, assetType AssetType, reference string, content []byte) (*Asset, error) {
	if planExecutionID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "plan execution id must not be empty")
	}
	if reference == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset reference must not be empty")
	}

	asset := &Asset{
		ID:              id.NewAssetID(),
		PlanExecutionID: planExecutionID,
		Type:            assetType,
		Reference:       reference,
		ContentHash:     HashContent(content),
		CreatedAt:       requestcontext.Now(ctx).UTC(),
	}
	if err := s.assets.Append(ctx, asset); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append evidence asset")
	}
	return asset, nil
}

// Collect assembles the bundle for one plan execution, fanning the three
// store reads out concurrently. A plan with no charge yields a nil Charge,
// not an error.
func (s *Service) Collect(ctx context.Context, planExecutionID id.PlanExecutionID) (*Bundle, error) {
	if planExecutionID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "plan execution id must not be empty")
	}

	bundle := &Bundle{PlanExecutionID: planExecutionID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assets, err := s.assets.ListByPlanExecution(gctx, planExecutionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence assets")
		}
		bundle.Assets = assets
		return nil
	})
	g.Go(func() error {
		entries, err := s.entries.ListByPlanExecution(gctx, planExecutionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
		}
		bundle.AuditEntries = entries
		return nil
	})
	g.Go(func() error {
		charge, err := s.charges.FindByPlanExecution(gctx, planExecutionID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load charge")
		}
		bundle.Charge = charge
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}
