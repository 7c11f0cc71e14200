package pipelines

import (
	"context"

	"github.com/google/uuid"

	"pipehealth/internal/clients"
	"pipehealth/internal/entity"
)

// Service provides pipeline business logic.
type Service struct {
	repo        Repository
	clientsRepo clients.Repository
}

func NewService(repo Repository, clientsRepo clients.Repository) *Service {
	return &Service{repo: repo, clientsRepo: clientsRepo}
}

// Create creates a pipeline under an existing client.
func (s *Service) Create(ctx context.Context, params CreateParams) (entity.Pipeline, error) {
	if _, err := s.clientsRepo.Get(ctx, params.ClientID); err != nil {
		return entity.Pipeline{}, err
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (entity.Pipeline, error) {
	return s.repo.Get(ctx, id)
}

// ListForClient lists pipelines scoped to an existing client.
func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID, isActive *bool) ([]entity.Pipeline, error) {
	if _, err := s.clientsRepo.Get(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListForClient(ctx, clientID, isActive)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Pipeline, error) {
	return s.repo.Update(ctx, id, params)
}
