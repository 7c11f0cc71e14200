package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pipehealth/internal/entity"
	"pipehealth/internal/store"
)

const runColumns = `id, pipeline_id, external_run_id, status, started_at, finished_at,
		duration_seconds, rows_processed, error_message, status_reason, payload,
		ingested_at, created_at, updated_at`

type PostgresRepo struct {
	db store.DB
}

func NewPostgresRepo(db store.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, params CreateParams) (entity.Run, error) {
	query := `
	INSERT INTO runs (pipeline_id, external_run_id, status, started_at, finished_at,
		duration_seconds, rows_processed, error_message, status_reason, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + runColumns

	payload, err := marshalPayload(params.Payload)
	if err != nil {
		return entity.Run{}, err
	}

	row := r.db.QueryRow(ctx, query,
		params.PipelineID, params.ExternalRunID, params.Status,
		params.StartedAt, params.FinishedAt, params.DurationSeconds,
		params.RowsProcessed, params.ErrorMessage, params.StatusReason, payload)
	return scanRun(row)
}

// Upsert inserts or replaces a run keyed by (pipeline_id, external_run_id) as
// a single atomic statement and returns the resulting row.
func (r *PostgresRepo) Upsert(ctx context.Context, params UpsertParams) (entity.Run, error) {
	query := `
	INSERT INTO runs (pipeline_id, external_run_id, status, started_at, finished_at,
		duration_seconds, rows_processed, error_message, status_reason, payload,
		ingested_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	ON CONFLICT (pipeline_id, external_run_id) DO UPDATE SET
		status = EXCLUDED.status,
		started_at = EXCLUDED.started_at,
		finished_at = EXCLUDED.finished_at,
		duration_seconds = EXCLUDED.duration_seconds,
		rows_processed = EXCLUDED.rows_processed,
		error_message = EXCLUDED.error_message,
		status_reason = EXCLUDED.status_reason,
		payload = EXCLUDED.payload,
		ingested_at = EXCLUDED.ingested_at,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + runColumns

	payload, err := marshalPayload(params.Payload)
	if err != nil {
		return entity.Run{}, err
	}

	row := r.db.QueryRow(ctx, query,
		params.PipelineID, params.ExternalRunID, params.Status,
		params.StartedAt, params.FinishedAt, params.DurationSeconds,
		params.RowsProcessed, params.ErrorMessage, params.StatusReason, payload,
		params.IngestedAt)
	return scanRun(row)
}

func (r *PostgresRepo) List(ctx context.Context, q ListQuery) ([]entity.Run, error) {
	query := `
	SELECT ` + runColumns + `
	FROM runs
	WHERE pipeline_id = $1
	AND ($2::run_status IS NULL OR status = $2)
	AND ($3::timestamptz IS NULL OR started_at >= $3)
	AND ($4::timestamptz IS NULL OR started_at < $4)`

	if q.Ascending {
		query += `
	ORDER BY started_at ASC NULLS LAST, finished_at ASC NULLS LAST, id ASC`
	} else {
		query += `
	ORDER BY started_at DESC NULLS LAST, finished_at DESC NULLS LAST, id DESC`
	}
	query += `
	LIMIT $5`

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, query, q.PipelineID, q.Status, q.Since, q.Until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// GetLatestForPipeline returns the most recent run ordered by started_at,
// then finished_at, then id, with NULLs last.
func (r *PostgresRepo) GetLatestForPipeline(ctx context.Context, pipelineID uuid.UUID) (entity.Run, error) {
	query := `
	SELECT ` + runColumns + `
	FROM runs
	WHERE pipeline_id = $1
	ORDER BY started_at DESC NULLS LAST, finished_at DESC NULLS LAST, id DESC
	LIMIT 1`

	run, err := scanRun(r.db.QueryRow(ctx, query, pipelineID))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Run{}, ErrNotFound
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (entity.Run, error) {
	var run entity.Run
	var payload []byte
	err := row.Scan(&run.ID, &run.PipelineID, &run.ExternalRunID, &run.Status,
		&run.StartedAt, &run.FinishedAt, &run.DurationSeconds, &run.RowsProcessed,
		&run.ErrorMessage, &run.StatusReason, &payload,
		&run.IngestedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code[:2] == "23" {
			return entity.Run{}, fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return entity.Run{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &run.Payload); err != nil {
			return entity.Run{}, fmt.Errorf("decoding run payload: %w", err)
		}
	}
	return run, nil
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding run payload: %w", err)
	}
	return encoded, nil
}
