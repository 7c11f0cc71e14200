package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pipehealth/internal/entity"
	"pipehealth/internal/store"
)

const clientColumns = `id, name, is_active, created_at, updated_at`

type PostgresRepo struct {
	db store.DB
}

func NewPostgresRepo(db store.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, params CreateParams) (entity.Client, error) {
	query := `
	INSERT INTO clients (name, is_active)
	VALUES ($1, $2)
	RETURNING ` + clientColumns

	return scanClient(r.db.QueryRow(ctx, query, params.Name, params.IsActive))
}

func (r *PostgresRepo) Get(ctx context.Context, id uuid.UUID) (entity.Client, error) {
	query := `
	SELECT ` + clientColumns + `
	FROM clients
	WHERE id = $1`

	client, err := scanClient(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Client{}, ErrNotFound
	}
	return client, err
}

func (r *PostgresRepo) List(ctx context.Context, isActive *bool) ([]entity.Client, error) {
	query := `
	SELECT ` + clientColumns + `
	FROM clients
	WHERE ($1::boolean IS NULL OR is_active = $1)
	ORDER BY name`

	rows, err := r.db.Query(ctx, query, isActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entity.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	return result, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Client, error) {
	query := `
	UPDATE clients SET
		name = COALESCE($2, name),
		is_active = COALESCE($3, is_active),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + clientColumns

	client, err := scanClient(r.db.QueryRow(ctx, query, id, params.Name, params.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Client{}, ErrNotFound
	}
	return client, err
}

// RunSummary returns run status counts over the window plus the latest run
// status per pipeline for the client.
func (r *PostgresRepo) RunSummary(ctx context.Context, id uuid.UUID, since, until time.Time) (RunSummary, error) {
	summary := RunSummary{
		ClientID:     id,
		Since:        since,
		Until:        until,
		StatusCounts: make(map[entity.RunStatus]int, len(entity.RunStatuses)),
	}
	for _, status := range entity.RunStatuses {
		summary.StatusCounts[status] = 0
	}

	countsQuery := `
	SELECT r.status, COUNT(r.id)
	FROM runs r
	JOIN pipelines p ON p.id = r.pipeline_id
	WHERE p.client_id = $1
	AND COALESCE(r.finished_at, r.started_at, r.created_at) >= $2
	AND COALESCE(r.finished_at, r.started_at, r.created_at) < $3
	GROUP BY r.status`

	rows, err := r.db.Query(ctx, countsQuery, id, since, until)
	if err != nil {
		return RunSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status entity.RunStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return RunSummary{}, err
		}
		summary.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, err
	}

	latestQuery := `
	WITH latest_run AS (
		SELECT r.*, ROW_NUMBER() OVER (
			PARTITION BY r.pipeline_id
			ORDER BY r.started_at DESC NULLS LAST, r.finished_at DESC NULLS LAST, r.id DESC
		) AS rn
		FROM runs r
	)
	SELECT p.id, p.name, lr.status,
		COALESCE(lr.started_at, lr.finished_at, lr.created_at)
	FROM pipelines p
	LEFT JOIN latest_run lr ON lr.pipeline_id = p.id AND lr.rn = 1
	WHERE p.client_id = $1
	ORDER BY p.name`

	latestRows, err := r.db.Query(ctx, latestQuery, id)
	if err != nil {
		return RunSummary{}, err
	}
	defer latestRows.Close()
	for latestRows.Next() {
		var latest LatestPipelineStatus
		if err := latestRows.Scan(&latest.PipelineID, &latest.PipelineName,
			&latest.Status, &latest.LastRunTime); err != nil {
			return RunSummary{}, err
		}
		summary.LatestStatuses = append(summary.LatestStatuses, latest)
	}
	if err := latestRows.Err(); err != nil {
		return RunSummary{}, err
	}

	return summary, nil
}

func scanClient(row pgx.Row) (entity.Client, error) {
	var c entity.Client
	err := row.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code[:2] == "23" {
			return entity.Client{}, fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return entity.Client{}, err
	}
	return c, nil
}
