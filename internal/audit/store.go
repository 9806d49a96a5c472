package audit

import (
	"context"
	"time"

	id "procura/pkg/domain"
)

// Store persists audit entries. Insert creates a pending entry; Seal moves it
// to its terminal decision. Implementations must reject a second Seal on the
// same entry with sentinel.ErrInvalidState.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
	Seal(ctx context.Context, entryID id.EntryID, decision Decision, result any, sealedAt time.Time) error
	FindByID(ctx context.Context, entryID id.EntryID) (*Entry, error)
	ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*Entry, error)
	ListByMandate(ctx context.Context, mandateID id.MandateID) ([]*Entry, error)
	ListByTool(ctx context.Context, tool string) ([]*Entry, error)
}
