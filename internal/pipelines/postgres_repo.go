package pipelines

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pipehealth/internal/entity"
	"pipehealth/internal/store"
)

const pipelineColumns = `id, client_id, name, platform, external_id, pipeline_type,
		description, environment, is_active, created_at, updated_at`

type PostgresRepo struct {
	db store.DB
}

func NewPostgresRepo(db store.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, params CreateParams) (entity.Pipeline, error) {
	query := `
	INSERT INTO pipelines (client_id, name, platform, external_id, pipeline_type,
		description, environment, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + pipelineColumns

	row := r.db.QueryRow(ctx, query,
		params.ClientID, params.Name, params.Platform, params.ExternalID,
		params.PipelineType, params.Description, params.Environment, params.IsActive)
	return scanPipeline(row)
}

func (r *PostgresRepo) Get(ctx context.Context, id uuid.UUID) (entity.Pipeline, error) {
	query := `
	SELECT ` + pipelineColumns + `
	FROM pipelines
	WHERE id = $1`

	pipeline, err := scanPipeline(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Pipeline{}, ErrNotFound
	}
	return pipeline, err
}

func (r *PostgresRepo) ListForClient(ctx context.Context, clientID uuid.UUID, isActive *bool) ([]entity.Pipeline, error) {
	query := `
	SELECT ` + pipelineColumns + `
	FROM pipelines
	WHERE client_id = $1
	AND ($2::boolean IS NULL OR is_active = $2)
	ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, clientID, isActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPipelines(rows)
}

// ListIngestionEligible lists pipelines with an external id and ingestion
// type, ordered by creation time ascending so sync passes iterate
// deterministically.
func (r *PostgresRepo) ListIngestionEligible(ctx context.Context, onlyActive bool) ([]entity.Pipeline, error) {
	query := `
	SELECT ` + pipelineColumns + `
	FROM pipelines
	WHERE external_id IS NOT NULL
	AND pipeline_type = 'ingestion'
	AND ($1 = false OR is_active = true)
	ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPipelines(rows)
}

func (r *PostgresRepo) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Pipeline, error) {
	query := `
	UPDATE pipelines SET
		name = COALESCE($2, name),
		platform = COALESCE($3, platform),
		pipeline_type = COALESCE($4, pipeline_type),
		external_id = COALESCE($5, external_id),
		description = COALESCE($6, description),
		environment = COALESCE($7, environment),
		is_active = COALESCE($8, is_active),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + pipelineColumns

	pipeline, err := scanPipeline(r.db.QueryRow(ctx, query,
		id, params.Name, params.Platform, params.PipelineType, params.ExternalID,
		params.Description, params.Environment, params.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Pipeline{}, ErrNotFound
	}
	return pipeline, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (entity.Pipeline, error) {
	var p entity.Pipeline
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Platform, &p.ExternalID,
		&p.PipelineType, &p.Description, &p.Environment, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code[:2] == "23" {
			return entity.Pipeline{}, fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return entity.Pipeline{}, err
	}
	return p, nil
}

func collectPipelines(rows pgx.Rows) ([]entity.Pipeline, error) {
	var result []entity.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
