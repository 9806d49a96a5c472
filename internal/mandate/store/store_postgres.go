package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"procura/internal/mandate/models"
	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// Postgres persists mandates in PostgreSQL via database/sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by deployment tooling and integration test setup.
const Schema = `
CREATE TABLE IF NOT EXISTS mandates (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	provider TEXT NOT NULL,
	org_ref TEXT NOT NULL DEFAULT '',
	scopes TEXT NOT NULL,
	child_id TEXT NOT NULL DEFAULT '',
	program_ref TEXT NOT NULL DEFAULT '',
	max_amount_cents BIGINT NOT NULL DEFAULT 0,
	valid_from TIMESTAMPTZ NOT NULL,
	valid_until TIMESTAMPTZ NOT NULL,
	time_period TEXT NOT NULL,
	credential_type TEXT NOT NULL,
	status TEXT NOT NULL,
	token TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS mandates_user_provider_idx
	ON mandates (user_id, provider, created_at DESC);
`

const mandateColumns = `
	id, user_id, provider, org_ref, scopes, child_id, program_ref,
	max_amount_cents, valid_from, valid_until, time_period,
	credential_type, status, token, created_at
`

func (s *Postgres) Create(ctx context.Context, mandate *models.Mandate) error {
	query := `
		INSERT INTO mandates (` + mandateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(mandate.ID),
		uuid.UUID(mandate.UserID),
		string(mandate.Provider),
		mandate.OrgRef,
		joinScopes(mandate.Scopes),
		mandate.ChildID,
		mandate.ProgramRef,
		mandate.MaxAmountCents,
		mandate.ValidFrom,
		mandate.ValidUntil,
		mandate.TimePeriod,
		string(mandate.CredentialType),
		string(mandate.Status),
		mandate.Token,
		mandate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mandate: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, mandateID id.MandateID) (*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM mandates WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(mandateID))
	return scanMandate(row)
}

func (s *Postgres) FindLatestActive(ctx context.Context, userID id.UserID, provider id.Provider, now time.Time) (*models.Mandate, error) {
	query := `
		SELECT ` + mandateColumns + `
		FROM mandates
		WHERE user_id = $1 AND provider = $2 AND status = $3 AND valid_until > $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(userID), string(provider), string(models.StatusActive), now)
	return scanMandate(row)
}

func (s *Postgres) UpdateStatus(ctx context.Context, mandateID id.MandateID, status models.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mandates SET status = $1 WHERE id = $2`,
		string(status), uuid.UUID(mandateID))
	if err != nil {
		return fmt.Errorf("update mandate status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Mandate, error) {
	query := `
		SELECT ` + mandateColumns + `
		FROM mandates
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query mandates: %w", err)
	}
	defer rows.Close()

	var out []*models.Mandate
	for rows.Next() {
		mandate, err := scanMandate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mandate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mandates: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMandate(row rowScanner) (*models.Mandate, error) {
	var (
		m              models.Mandate
		mandateID      uuid.UUID
		userID         uuid.UUID
		provider       string
		scopes         string
		credentialType string
		status         string
	)
	err := row.Scan(
		&mandateID,
		&userID,
		&provider,
		&m.OrgRef,
		&scopes,
		&m.ChildID,
		&m.ProgramRef,
		&m.MaxAmountCents,
		&m.ValidFrom,
		&m.ValidUntil,
		&m.TimePeriod,
		&credentialType,
		&status,
		&m.Token,
		&m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan mandate: %w", err)
	}
	m.ID = id.MandateID(mandateID)
	m.UserID = id.UserID(userID)
	m.Provider = id.Provider(provider)
	m.Scopes = id.NewScopes(strings.Fields(scopes))
	m.CredentialType = models.CredentialType(credentialType)
	m.Status = models.Status(status)
	return &m, nil
}

// Scopes are stored space-delimited, matching the OAuth scope wire format.
func joinScopes(scopes id.Scopes) string {
	return strings.Join(scopes.Strings(), " ")
}
