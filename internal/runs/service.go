package runs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
	"pipehealth/internal/pipelines"
)

// Service provides run business logic for manual run records and listings.
// Ingestion writes bypass this service and go straight to Upsert inside the
// sync transaction.
type Service struct {
	repo          Repository
	pipelinesRepo pipelines.Repository
}

func NewService(repo Repository, pipelinesRepo pipelines.Repository) *Service {
	return &Service{repo: repo, pipelinesRepo: pipelinesRepo}
}

// Create records a run for an existing pipeline. A missing external run id
// gets a generated manual one so the dedup key stays unique.
func (s *Service) Create(ctx context.Context, params CreateParams) (entity.Run, error) {
	if _, err := s.pipelinesRepo.Get(ctx, params.PipelineID); err != nil {
		return entity.Run{}, err
	}
	if params.ExternalRunID == "" {
		params.ExternalRunID = fmt.Sprintf("manual-%s", uuid.New())
	}
	return s.repo.Create(ctx, params)
}

// List lists runs for an existing pipeline.
func (s *Service) List(ctx context.Context, q ListQuery) ([]entity.Run, error) {
	if _, err := s.pipelinesRepo.Get(ctx, q.PipelineID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, q)
}

// Latest returns the most recent run for an existing pipeline.
func (s *Service) Latest(ctx context.Context, pipelineID uuid.UUID) (entity.Run, error) {
	if _, err := s.pipelinesRepo.Get(ctx, pipelineID); err != nil {
		return entity.Run{}, err
	}
	return s.repo.GetLatestForPipeline(ctx, pipelineID)
}
