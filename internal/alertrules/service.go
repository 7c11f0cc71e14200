package alertrules

import (
	"context"

	"github.com/google/uuid"

	"pipehealth/internal/clients"
	"pipehealth/internal/entity"
	"pipehealth/internal/pipelines"
)

// Service provides alert rule business logic. Rule evaluation and delivery
// are out of scope; this manages rule configuration only.
type Service struct {
	repo          Repository
	clientsRepo   clients.Repository
	pipelinesRepo pipelines.Repository
}

func NewService(repo Repository, clientsRepo clients.Repository, pipelinesRepo pipelines.Repository) *Service {
	return &Service{repo: repo, clientsRepo: clientsRepo, pipelinesRepo: pipelinesRepo}
}

// Create validates scope and rule-type parameters, then persists the rule.
func (s *Service) Create(ctx context.Context, params CreateParams) (entity.AlertRule, error) {
	if params.ClientID == nil && params.PipelineID == nil {
		return entity.AlertRule{}, ErrInvalidScope
	}
	if params.RuleType == entity.RuleTypeFailuresInWindow &&
		(params.Threshold == nil || params.WindowMinutes == nil) {
		return entity.AlertRule{}, ErrMissingWindowParams
	}

	if params.ClientID != nil {
		if _, err := s.clientsRepo.Get(ctx, *params.ClientID); err != nil {
			return entity.AlertRule{}, err
		}
	}
	if params.PipelineID != nil {
		if _, err := s.pipelinesRepo.Get(ctx, *params.PipelineID); err != nil {
			return entity.AlertRule{}, err
		}
	}

	return s.repo.Create(ctx, params)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (entity.AlertRule, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]entity.AlertRule, error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.AlertRule, error) {
	return s.repo.Update(ctx, id, params)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
