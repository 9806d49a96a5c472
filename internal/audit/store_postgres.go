package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

// Schema is the audit entry DDL. Args are stored verbatim; result holds the
// redacted copy written at seal time.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id UUID PRIMARY KEY,
    plan_execution_id TEXT NOT NULL DEFAULT '',
    mandate_id UUID,
    tool TEXT NOT NULL,
    args JSONB NOT NULL DEFAULT '{}'::jsonb,
    decision TEXT NOT NULL,
    result JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    sealed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_plan_execution_id ON audit_entries (plan_execution_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_mandate_id ON audit_entries (mandate_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_tool ON audit_entries (tool);
`

const entryColumns = `id, plan_execution_id, mandate_id, tool, args, decision, result, created_at, sealed_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, entry *Entry) error {
	args, err := json.Marshal(entry.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	var mandateID *uuid.UUID
	if !entry.MandateID.IsNil() {
		raw := uuid.UUID(entry.MandateID)
		mandateID = &raw
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, plan_execution_id, mandate_id, tool, args, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(entry.ID), string(entry.PlanExecutionID), mandateID, entry.Tool,
		args, string(entry.Decision), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert audit entry rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Seal(ctx context.Context, entryID id.EntryID, decision Decision, result any, sealedAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE audit_entries
		SET decision = $2, result = $3, sealed_at = $4
		WHERE id = $1 AND decision = 'pending'`,
		uuid.UUID(entryID), string(decision), resultJSON, sealedAt,
	)
	if err != nil {
		return fmt.Errorf("seal audit entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("seal audit entry rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Zero rows: either the entry does not exist or it is already sealed.
	var decided string
	err = s.db.QueryRowContext(ctx, `SELECT decision FROM audit_entries WHERE id = $1`, uuid.UUID(entryID)).Scan(&decided)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check audit entry state: %w", err)
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.EntryID) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE id = $1`, uuid.UUID(entryID))

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*Entry, error) {
	return s.listWhere(ctx, `plan_execution_id = $1`, string(planExecutionID))
}

func (s *PostgresStore) ListByMandate(ctx context.Context, mandateID id.MandateID) ([]*Entry, error) {
	return s.listWhere(ctx, `mandate_id = $1`, uuid.UUID(mandateID))
}

func (s *PostgresStore) ListByTool(ctx context.Context, tool string) ([]*Entry, error) {
	return s.listWhere(ctx, `tool = $1`, tool)
}

func (s *PostgresStore) listWhere(ctx context.Context, where string, arg any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE `+where+` ORDER BY created_at ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry      Entry
		entryID    uuid.UUID
		planExecID string
		mandateID  *uuid.UUID
		argsJSON   []byte
		decision   string
		resultJSON []byte
	)
	err := row.Scan(&entryID, &planExecID, &mandateID, &entry.Tool, &argsJSON,
		&decision, &resultJSON, &entry.CreatedAt, &entry.SealedAt)
	if err != nil {
		return nil, err
	}

	entry.ID = id.EntryID(entryID)
	entry.PlanExecutionID = id.PlanExecutionID(planExecID)
	if mandateID != nil {
		entry.MandateID = id.MandateID(*mandateID)
	}
	entry.Decision = Decision(decision)
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &entry.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &entry.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return &entry, nil
}
