package store

import (
	"context"
	"time"

	"procura/internal/mandate/models"
	id "procura/pkg/domain"
)

// Store persists mandate records. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict for
// duplicate IDs; services translate those into domain errors.
//
// Records are append-only apart from Status: the token bytes and grant are
// immutable once issued.
type Store interface {
	Create(ctx context.Context, mandate *models.Mandate) error
	FindByID(ctx context.Context, mandateID id.MandateID) (*models.Mandate, error)
	// FindLatestActive returns the most recently created record for
	// (user, provider) with status active and valid_until after now.
	FindLatestActive(ctx context.Context, userID id.UserID, provider id.Provider, now time.Time) (*models.Mandate, error)
	UpdateStatus(ctx context.Context, mandateID id.MandateID, status models.Status) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Mandate, error)
}
