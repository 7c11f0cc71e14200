package pipelines

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrNotFound is returned when a pipeline is not found.
var ErrNotFound = errors.New("pipeline not found")

// ErrConstraint is returned when a write violates a schema constraint, e.g.
// a duplicate (client_id, name) or (client_id, platform, external_id).
var ErrConstraint = errors.New("pipeline payload violates schema constraints")

// CreateParams carries fields for a new pipeline.
type CreateParams struct {
	ClientID     uuid.UUID
	Name         string
	Platform     entity.Platform
	PipelineType entity.PipelineType
	ExternalID   *string
	Description  *string
	Environment  string
	IsActive     bool
}

// UpdateParams carries optional field updates; nil means leave unchanged.
type UpdateParams struct {
	Name         *string
	Platform     *entity.Platform
	PipelineType *entity.PipelineType
	ExternalID   *string
	Description  *string
	Environment  *string
	IsActive     *bool
}

// Repository defines the contract for pipeline persistence. It doubles as
// the ingestion eligibility provider through ListIngestionEligible.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (entity.Pipeline, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Pipeline, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, isActive *bool) ([]entity.Pipeline, error)
	ListIngestionEligible(ctx context.Context, onlyActive bool) ([]entity.Pipeline, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Pipeline, error)
}
