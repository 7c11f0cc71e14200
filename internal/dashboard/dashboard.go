package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrInvalidWindow is returned when a query window has since >= until.
var ErrInvalidWindow = errors.New("since must be before until")

// ErrInvalidBucket is returned for unsupported time buckets.
var ErrInvalidBucket = errors.New("unsupported time bucket")

// Window is a half-open [Since, Until) query interval.
type Window struct {
	Since time.Time
	Until time.Time
}

// FailureBucket is one time bucket of failed-run counts.
type FailureBucket struct {
	Bucket     time.Time `json:"bucket"`
	FailedRuns int       `json:"failed_runs"`
}

// PipelineStatus is the latest run status snapshot for one active pipeline.
type PipelineStatus struct {
	ClientName   string            `json:"client_name"`
	PipelineName string            `json:"pipeline_name"`
	Platform     entity.Platform   `json:"platform"`
	LatestStatus *entity.RunStatus `json:"latest_status,omitempty"`
	LastRunTime  *time.Time        `json:"last_run_time,omitempty"`
}

// ClientFailureCounts is rolling failed-run counts for one client.
type ClientFailureCounts struct {
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name"`
	Failed24h  int       `json:"failed_24h"`
	Failed7d   int       `json:"failed_7d"`
}

// FlakyPipeline ranks a pipeline by failures over a window.
type FlakyPipeline struct {
	ClientName   string          `json:"client_name"`
	PipelineName string          `json:"pipeline_name"`
	Platform     entity.Platform `json:"platform"`
	FailureCount int             `json:"failure_count"`
	TotalRuns    int             `json:"total_runs"`
	FailureRate  float64         `json:"failure_rate"`
}

// PlatformFailureRate is failure counts and rate grouped by platform.
type PlatformFailureRate struct {
	Platform    entity.Platform `json:"platform"`
	Failures    int             `json:"failures"`
	TotalRuns   int             `json:"total_runs"`
	FailureRate float64         `json:"failure_rate"`
}

// DurationBucket is one width_bucket slot of run durations.
type DurationBucket struct {
	Bucket   int `json:"duration_bucket"`
	RunCount int `json:"run_count"`
}

// Repository defines the analytical queries backing the dashboard.
type Repository interface {
	FailuresOverTime(ctx context.Context, w Window, bucket string) ([]FailureBucket, error)
	LatestStatusByPipeline(ctx context.Context) ([]PipelineStatus, error)
	FailureCountsByClient(ctx context.Context, asOf time.Time) ([]ClientFailureCounts, error)
	TopFlakyPipelines(ctx context.Context, since time.Time, limit int) ([]FlakyPipeline, error)
	FailureRateByPlatform(ctx context.Context, w Window) ([]PlatformFailureRate, error)
	RunDurationDistribution(ctx context.Context, w Window, maxDurationSeconds, bucketCount int) ([]DurationBucket, error)
}
