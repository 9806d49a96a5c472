package evidence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "procura/pkg/domain"
	"procura/pkg/platform/sentinel"
)

const Schema = `
CREATE TABLE IF NOT EXISTS evidence_assets (
    id UUID PRIMARY KEY,
    plan_execution_id TEXT NOT NULL,
    asset_type TEXT NOT NULL,
    reference TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_assets_plan_execution_id ON evidence_assets (plan_execution_id);
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, asset *Asset) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence_assets (id, plan_execution_id, asset_type, reference, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(asset.ID), string(asset.PlanExecutionID), string(asset.Type),
		asset.Reference, asset.ContentHash, asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evidence asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert evidence asset rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_execution_id, asset_type, reference, content_hash, created_at
		FROM evidence_assets
		WHERE plan_execution_id = $1
		ORDER BY created_at ASC`, string(planExecutionID))
	if err != nil {
		return nil, fmt.Errorf("list evidence assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var (
			asset      Asset
			assetID    uuid.UUID
			planExecID string
			assetType  string
		)
		if err := rows.Scan(&assetID, &planExecID, &assetType, &asset.Reference, &asset.ContentHash, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence asset: %w", err)
		}
		asset.ID = id.AssetID(assetID)
		asset.PlanExecutionID = id.PlanExecutionID(planExecID)
		asset.Type = AssetType(assetType)
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence assets: %w", err)
	}
	return assets, nil
}
