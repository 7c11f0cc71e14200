package dashboard

import (
	"context"
	"fmt"
	"time"

	"pipehealth/internal/store"
)

// validBuckets whitelists the date_trunc precisions we interpolate into SQL.
var validBuckets = map[string]struct{}{
	"minute": {},
	"hour":   {},
	"day":    {},
	"week":   {},
}

type PostgresRepo struct {
	db store.DB
}

func NewPostgresRepo(db store.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FailuresOverTime(ctx context.Context, w Window, bucket string) ([]FailureBucket, error) {
	if _, ok := validBuckets[bucket]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucket, bucket)
	}

	// bucket is whitelisted above; date_trunc precision cannot be a bind parameter.
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', COALESCE(r.finished_at, r.started_at, r.created_at)) AS bucket,
		       COUNT(*) AS failed_runs
		FROM runs r
		WHERE r.status = 'failed'
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) >= $1
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) < $2
		GROUP BY bucket
		ORDER BY bucket ASC`, bucket)

	rows, err := r.db.Query(ctx, query, w.Since, w.Until)
	if err != nil {
		return nil, fmt.Errorf("query failures over time: %w", err)
	}
	defer rows.Close()

	var out []FailureBucket
	for rows.Next() {
		var b FailureBucket
		if err := rows.Scan(&b.Bucket, &b.FailedRuns); err != nil {
			return nil, fmt.Errorf("scan failure bucket: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure buckets: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) LatestStatusByPipeline(ctx context.Context) ([]PipelineStatus, error) {
	query := `
		WITH latest_runs AS (
			SELECT r.pipeline_id,
			       r.status,
			       COALESCE(r.finished_at, r.started_at, r.created_at) AS run_time,
			       ROW_NUMBER() OVER (
			           PARTITION BY r.pipeline_id
			           ORDER BY COALESCE(r.finished_at, r.started_at, r.created_at) DESC
			       ) AS rn
			FROM runs r
		)
		SELECT c.name, p.name, p.platform, lr.status, lr.run_time
		FROM pipelines p
		JOIN clients c ON c.id = p.client_id
		LEFT JOIN latest_runs lr ON lr.pipeline_id = p.id AND lr.rn = 1
		WHERE p.is_active = true
		ORDER BY c.name ASC, p.name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest status by pipeline: %w", err)
	}
	defer rows.Close()

	var out []PipelineStatus
	for rows.Next() {
		var s PipelineStatus
		if err := rows.Scan(&s.ClientName, &s.PipelineName, &s.Platform, &s.LatestStatus, &s.LastRunTime); err != nil {
			return nil, fmt.Errorf("scan pipeline status: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline statuses: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) FailureCountsByClient(ctx context.Context, asOf time.Time) ([]ClientFailureCounts, error) {
	query := `
		SELECT c.id,
		       c.name,
		       COUNT(*) FILTER (
		           WHERE COALESCE(r.finished_at, r.started_at, r.created_at) >= $1::timestamptz - interval '24 hours'
		       ) AS failed_24h,
		       COUNT(*) FILTER (
		           WHERE COALESCE(r.finished_at, r.started_at, r.created_at) >= $1::timestamptz - interval '7 days'
		       ) AS failed_7d
		FROM clients c
		JOIN pipelines p ON p.client_id = c.id
		JOIN runs r ON r.pipeline_id = p.id
		WHERE r.status = 'failed'
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) < $1
		GROUP BY c.id, c.name
		HAVING COUNT(*) FILTER (
		    WHERE COALESCE(r.finished_at, r.started_at, r.created_at) >= $1::timestamptz - interval '7 days'
		) > 0
		ORDER BY failed_7d DESC, c.name ASC`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query failure counts by client: %w", err)
	}
	defer rows.Close()

	var out []ClientFailureCounts
	for rows.Next() {
		var c ClientFailureCounts
		if err := rows.Scan(&c.ClientID, &c.ClientName, &c.Failed24h, &c.Failed7d); err != nil {
			return nil, fmt.Errorf("scan client failure counts: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client failure counts: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) TopFlakyPipelines(ctx context.Context, since time.Time, limit int) ([]FlakyPipeline, error) {
	query := `
		SELECT c.name,
		       p.name,
		       p.platform,
		       COUNT(*) FILTER (WHERE r.status = 'failed') AS failure_count,
		       COUNT(*) AS total_runs,
		       ROUND(
		           COUNT(*) FILTER (WHERE r.status = 'failed')::numeric / COUNT(*)::numeric,
		           4
		       )::float8 AS failure_rate
		FROM pipelines p
		JOIN clients c ON c.id = p.client_id
		JOIN runs r ON r.pipeline_id = p.id
		WHERE COALESCE(r.finished_at, r.started_at, r.created_at) >= $1
		GROUP BY c.name, p.name, p.platform
		HAVING COUNT(*) FILTER (WHERE r.status = 'failed') > 0
		ORDER BY failure_count DESC, failure_rate DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query top flaky pipelines: %w", err)
	}
	defer rows.Close()

	var out []FlakyPipeline
	for rows.Next() {
		var f FlakyPipeline
		if err := rows.Scan(&f.ClientName, &f.PipelineName, &f.Platform, &f.FailureCount, &f.TotalRuns, &f.FailureRate); err != nil {
			return nil, fmt.Errorf("scan flaky pipeline: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flaky pipelines: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) FailureRateByPlatform(ctx context.Context, w Window) ([]PlatformFailureRate, error) {
	query := `
		SELECT p.platform,
		       COUNT(*) FILTER (WHERE r.status = 'failed') AS failures,
		       COUNT(*) AS total_runs,
		       ROUND(
		           COUNT(*) FILTER (WHERE r.status = 'failed')::numeric / COUNT(*)::numeric,
		           4
		       )::float8 AS failure_rate
		FROM pipelines p
		JOIN runs r ON r.pipeline_id = p.id
		WHERE COALESCE(r.finished_at, r.started_at, r.created_at) >= $1
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) < $2
		GROUP BY p.platform
		ORDER BY failure_rate DESC, p.platform ASC`

	rows, err := r.db.Query(ctx, query, w.Since, w.Until)
	if err != nil {
		return nil, fmt.Errorf("query failure rate by platform: %w", err)
	}
	defer rows.Close()

	var out []PlatformFailureRate
	for rows.Next() {
		var p PlatformFailureRate
		if err := rows.Scan(&p.Platform, &p.Failures, &p.TotalRuns, &p.FailureRate); err != nil {
			return nil, fmt.Errorf("scan platform failure rate: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform failure rates: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) RunDurationDistribution(ctx context.Context, w Window, maxDurationSeconds, bucketCount int) ([]DurationBucket, error) {
	query := `
		SELECT width_bucket(r.duration_seconds, 0, $3, $4) AS duration_bucket,
		       COUNT(*) AS run_count
		FROM runs r
		WHERE r.duration_seconds IS NOT NULL
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) >= $1
		  AND COALESCE(r.finished_at, r.started_at, r.created_at) < $2
		GROUP BY duration_bucket
		ORDER BY duration_bucket ASC`

	rows, err := r.db.Query(ctx, query, w.Since, w.Until, maxDurationSeconds, bucketCount)
	if err != nil {
		return nil, fmt.Errorf("query run duration distribution: %w", err)
	}
	defer rows.Close()

	var out []DurationBucket
	for rows.Next() {
		var b DurationBucket
		if err := rows.Scan(&b.Bucket, &b.RunCount); err != nil {
			return nil, fmt.Errorf("scan duration bucket: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duration buckets: %w", err)
	}
	return out, nil
}
