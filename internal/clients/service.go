package clients

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
)

// ErrInvalidWindow is returned when a summary window has since >= until.
var ErrInvalidWindow = errors.New("since must be before until")

var defaultSince = time.Unix(0, 0).UTC()

// Service provides client business logic.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (entity.Client, error) {
	return s.repo.Create(ctx, params)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (entity.Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, isActive *bool) ([]entity.Client, error) {
	return s.repo.List(ctx, isActive)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Client, error) {
	return s.repo.Update(ctx, id, params)
}

// RunSummary returns run health for a client over [since, until). Nil bounds
// default to the epoch and now respectively.
func (s *Service) RunSummary(ctx context.Context, id uuid.UUID, since, until *time.Time) (RunSummary, error) {
	normalizedSince := defaultSince
	if since != nil {
		normalizedSince = *since
	}
	normalizedUntil := time.Now().UTC()
	if until != nil {
		normalizedUntil = *until
	}
	if !normalizedSince.Before(normalizedUntil) {
		return RunSummary{}, ErrInvalidWindow
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		return RunSummary{}, err
	}
	return s.repo.RunSummary(ctx, id, normalizedSince, normalizedUntil)
}
