package evidence

import (
	"context"

	id "procura/pkg/domain"
)

// Store is append-only: assets are never updated or deleted.
type Store interface {
	Append(ctx context.Context, asset *Asset) error
	ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*Asset, error)
}
