package alertrules

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

const alertRuleColumns = `id, client_id, pipeline_id, rule_type, threshold, window_minutes,
		channel, destination, is_enabled, created_at, updated_at`

type PostgresRepo struct {
	db store.DB
}

func NewPostgresRepo(db store.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, params CreateParams) (entity.AlertRule, error) {
	query := `
	INSERT INTO alert_rules (client_id, pipeline_id, rule_type, threshold, window_minutes,
		channel, destination, is_enabled)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + alertRuleColumns

	row := r.db.QueryRow(ctx, query,
		params.ClientID, params.PipelineID, params.RuleType, params.Threshold,
		params.WindowMinutes, params.Channel, params.Destination, params.IsEnabled)
	return scanAlertRule(row)
}

func (r *PostgresRepo) Get(ctx context.Context, id uuid.UUID) (entity.AlertRule, error) {
	query := `
	SELECT ` + alertRuleColumns + `
	FROM alert_rules
	WHERE id = $1`

	rule, err := scanAlertRule(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.AlertRule{}, ErrNotFound
	}
	return rule, err
}

func (r *PostgresRepo) List(ctx context.Context, q ListQuery) ([]entity.AlertRule, error) {
	query := `
	SELECT ` + alertRuleColumns + `
	FROM alert_rules
	WHERE ($1::uuid IS NULL OR client_id = $1)
	AND ($2::uuid IS NULL OR pipeline_id = $2)
	AND ($3::boolean IS NULL OR is_enabled = $3)
	ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, q.ClientID, q.PipelineID, q.IsEnabled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entity.AlertRule
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.AlertRule, error) {
	query := `
	UPDATE alert_rules SET
		threshold = COALESCE($2, threshold),
		window_minutes = COALESCE($3, window_minutes),
		channel = COALESCE($4, channel),
		destination = COALESCE($5, destination),
		is_enabled = COALESCE($6, is_enabled),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + alertRuleColumns

	rule, err := scanAlertRule(r.db.QueryRow(ctx, query,
		id, params.Threshold, params.WindowMinutes, params.Channel,
		params.Destination, params.IsEnabled))
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.AlertRule{}, ErrNotFound
	}
	return rule, err
}

func (r *PostgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAlertRule(row pgx.Row) (entity.AlertRule, error) {
	var rule entity.AlertRule
	err := row.Scan(&rule.ID, &rule.ClientID, &rule.PipelineID, &rule.RuleType,
		&rule.Threshold, &rule.WindowMinutes, &rule.Channel, &rule.Destination,
		&rule.IsEnabled, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code[:2] == "23" {
			return entity.AlertRule{}, fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return entity.AlertRule{}, err
	}
	return rule, nil
}
