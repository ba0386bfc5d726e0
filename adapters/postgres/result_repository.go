package postgres

import (
	"context"
	"database/sql"

	"panelscore/models"
	"panelscore/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepositoryImpl implements ResultStore for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL call record repository
func NewResultRepository(db *sqlx.DB) ports.ResultStore {
	return &ResultRepositoryImpl{db: db}
}

// EnsureSchema creates the call_records table if it does not exist
func (r *ResultRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS call_records (
			run_id           TEXT PRIMARY KEY,
			panel_id         TEXT NOT NULL,
			panel_name       TEXT NOT NULL,
			rater_id         TEXT NOT NULL,
			rater_reported   TEXT NOT NULL DEFAULT '',
			trial            INTEGER NOT NULL,
			temperature      DOUBLE PRECISION NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL,
			input_tokens     INTEGER NOT NULL DEFAULT 0,
			output_tokens    INTEGER NOT NULL DEFAULT 0,
			cost_usd         DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			stop_reason      TEXT NOT NULL DEFAULT '',
			raw_text         TEXT NOT NULL DEFAULT '',
			failed           BOOLEAN NOT NULL DEFAULT FALSE,
			failure_reason   TEXT NOT NULL DEFAULT '',
			UNIQUE (panel_id, rater_id, trial)
		)
	`)
	return err
}

// Save inserts a call record, replacing any prior attempt for the same
// panel, rater, and trial
func (r *ResultRepositoryImpl) Save(ctx context.Context, record *models.CallRecord) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO call_records (
			run_id, panel_id, panel_name, rater_id, rater_reported, trial,
			temperature, created_at, input_tokens, output_tokens, cost_usd,
			duration_seconds, stop_reason, raw_text, failed, failure_reason
		) VALUES (
			:run_id, :panel_id, :panel_name, :rater_id, :rater_reported, :trial,
			:temperature, :created_at, :input_tokens, :output_tokens, :cost_usd,
			:duration_seconds, :stop_reason, :raw_text, :failed, :failure_reason
		)
		ON CONFLICT (panel_id, rater_id, trial) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			rater_reported = EXCLUDED.rater_reported,
			temperature = EXCLUDED.temperature,
			created_at = EXCLUDED.created_at,
			input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens,
			cost_usd = EXCLUDED.cost_usd,
			duration_seconds = EXCLUDED.duration_seconds,
			stop_reason = EXCLUDED.stop_reason,
			raw_text = EXCLUDED.raw_text,
			failed = EXCLUDED.failed,
			failure_reason = EXCLUDED.failure_reason
	`, record)
	return err
}

// Get retrieves a single call record by run id
func (r *ResultRepositoryImpl) Get(ctx context.Context, runID string) (*models.CallRecord, error) {
	var record models.CallRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT run_id, panel_id, panel_name, rater_id, rater_reported, trial,
		       temperature, created_at, input_tokens, output_tokens, cost_usd,
		       duration_seconds, stop_reason, raw_text, failed, failure_reason
		FROM call_records
		WHERE run_id = $1
	`, runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List retrieves all call records ordered by panel, rater, and trial
func (r *ResultRepositoryImpl) List(ctx context.Context) ([]*models.CallRecord, error) {
	var records []*models.CallRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT run_id, panel_id, panel_name, rater_id, rater_reported, trial,
		       temperature, created_at, input_tokens, output_tokens, cost_usd,
		       duration_seconds, stop_reason, raw_text, failed, failure_reason
		FROM call_records
		ORDER BY panel_id, rater_id, trial
	`)
	return records, err
}
