package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// ErrConstraint is returned when a write violates a schema constraint.
var ErrConstraint = errors.New("run payload violates schema constraints")

// UpsertParams carries every field of a run row. An upsert replaces all
// mutable fields wholesale; there is no partial-field merge.
type UpsertParams struct {
	PipelineID      uuid.UUID
	ExternalRunID   string
	Status          entity.RunStatus
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int
	RowsProcessed   *int64
	ErrorMessage    *string
	StatusReason    *string
	Payload         map[string]any
	IngestedAt      time.Time
}

// CreateParams carries fields for a manually recorded run.
type CreateParams struct {
	PipelineID      uuid.UUID
	ExternalRunID   string
	Status          entity.RunStatus
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int
	RowsProcessed   *int64
	ErrorMessage    *string
	StatusReason    *string
	Payload         map[string]any
}

// ListQuery filters and orders a run listing.
type ListQuery struct {
	PipelineID uuid.UUID
	Status     *entity.RunStatus
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Ascending  bool
}

// Repository defines the contract for run persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (entity.Run, error)
	Upsert(ctx context.Context, params UpsertParams) (entity.Run, error)
	List(ctx context.Context, q ListQuery) ([]entity.Run, error)
	GetLatestForPipeline(ctx context.Context, pipelineID uuid.UUID) (entity.Run, error)
}
