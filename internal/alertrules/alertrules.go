package alertrules

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrNotFound is returned when an alert rule is not found.
var ErrNotFound = errors.New("alert rule not found")

// ErrConstraint is returned when a write violates a schema constraint.
var ErrConstraint = errors.New("alert rule payload violates schema constraints")

// ErrInvalidScope is returned when neither client nor pipeline scope is set.
var ErrInvalidScope = errors.New("alert rule requires a client or pipeline scope")

// ErrMissingWindowParams is returned when a failures_in_window rule lacks a
// threshold or window.
var ErrMissingWindowParams = errors.New("failures_in_window rules require threshold and window_minutes")

// CreateParams carries fields for a new alert rule.
type CreateParams struct {
	ClientID      *uuid.UUID
	PipelineID    *uuid.UUID
	RuleType      entity.RuleType
	Threshold     *int
	WindowMinutes *int
	Channel       entity.Channel
	Destination   string
	IsEnabled     bool
}

// UpdateParams carries optional field updates; nil means leave unchanged.
type UpdateParams struct {
	Threshold     *int
	WindowMinutes *int
	Channel       *entity.Channel
	Destination   *string
	IsEnabled     *bool
}

// ListQuery filters alert rule listings.
type ListQuery struct {
	ClientID   *uuid.UUID
	PipelineID *uuid.UUID
	IsEnabled  *bool
}

// Repository defines the contract for alert rule persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (entity.AlertRule, error)
	Get(ctx context.Context, id uuid.UUID) (entity.AlertRule, error)
	List(ctx context.Context, q ListQuery) ([]entity.AlertRule, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.AlertRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
