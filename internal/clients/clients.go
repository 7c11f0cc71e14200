package clients

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrNotFound is returned when a client is not found.
var ErrNotFound = errors.New("client not found")

// ErrConstraint is returned when a write violates a schema constraint, e.g.
// a duplicate client name.
var ErrConstraint = errors.New("client payload violates schema constraints")

// CreateParams carries fields for a new client.
type CreateParams struct {
	Name     string
	IsActive bool
}

// UpdateParams carries optional field updates; nil means leave unchanged.
type UpdateParams struct {
	Name     *string
	IsActive *bool
}

// RunSummary aggregates run health for one client over a time window.
type RunSummary struct {
	ClientID       uuid.UUID                `json:"client_id"`
	Since          time.Time                `json:"since"`
	Until          time.Time                `json:"until"`
	StatusCounts   map[entity.RunStatus]int `json:"status_counts"`
	LatestStatuses []LatestPipelineStatus   `json:"latest_statuses"`
}

// LatestPipelineStatus is the most recent run status for one pipeline.
type LatestPipelineStatus struct {
	PipelineID   uuid.UUID         `json:"pipeline_id"`
	PipelineName string            `json:"pipeline_name"`
	Status       *entity.RunStatus `json:"status,omitempty"`
	LastRunTime  *time.Time        `json:"last_run_time,omitempty"`
}

// Repository defines the contract for client persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (entity.Client, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Client, error)
	List(ctx context.Context, isActive *bool) ([]entity.Client, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Client, error)
	RunSummary(ctx context.Context, id uuid.UUID, since, until time.Time) (RunSummary, error)
}
