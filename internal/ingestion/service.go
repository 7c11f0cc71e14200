// Package ingestion reconciles the partner system's view of pipeline runs
// with local canonical state: it pages through partner run events for every
// eligible pipeline, normalizes them, and upserts them keyed by
// (pipeline_id, external_run_id).
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
	"pipehealth/internal/partner"
	"pipehealth/internal/runs"
)

// PageFetcher fetches one page of partner run events. *partner.Client is the
// production implementation; tests substitute doubles.
type PageFetcher interface {
	FetchPage(ctx context.Context, pipelineExternalID, cursor string) (partner.Page, error)
}

// EligibilityProvider lists the pipelines ingestion considers: external id
// present, ingestion type, active, ordered by creation time ascending.
type EligibilityProvider interface {
	ListIngestionEligible(ctx context.Context, onlyActive bool) ([]entity.Pipeline, error)
}

// RunStore persists normalized run events idempotently.
type RunStore interface {
	Upsert(ctx context.Context, params runs.UpsertParams) (entity.Run, error)
}

// Result aggregates counters for one sync pass.
type Result struct {
	PipelinesProcessed int `json:"pipelines_processed"`
	PagesProcessed     int `json:"pages_processed"`
	RunsProcessed      int `json:"runs_processed"`
}

// Service drives one synchronous ingestion pass. It keeps no state across
// passes; everything durable lives in the run store.
type Service struct {
	pipelines EligibilityProvider
	store     RunStore
	now       func() time.Time
}

func NewService(pipelines EligibilityProvider, store RunStore) *Service {
	return &Service{
		pipelines: pipelines,
		store:     store,
		now:       time.Now,
	}
}

// Sync ingests partner runs for every eligible pipeline, driving pagination
// to exhaustion per pipeline. Any fetch, mapping, or store error aborts the
// whole pass; the caller owns the surrounding transaction and rolls back
// everything written so far.
func (s *Service) Sync(ctx context.Context, client PageFetcher) (Result, error) {
	pipelines, err := s.pipelines.ListIngestionEligible(ctx, true)
	if err != nil {
		return Result{}, fmt.Errorf("listing eligible pipelines: %w", err)
	}

	var result Result
	for _, pipeline := range pipelines {
		if pipeline.ExternalID == nil || *pipeline.ExternalID == "" {
			continue
		}

		pages, runsProcessed, err := s.syncPipeline(ctx, client, pipeline.ID, *pipeline.ExternalID)
		if err != nil {
			return Result{}, err
		}
		result.PagesProcessed += pages
		result.RunsProcessed += runsProcessed
		result.PipelinesProcessed++
	}

	return result, nil
}

func (s *Service) syncPipeline(ctx context.Context, client PageFetcher, pipelineID uuid.UUID, externalID string) (pages, runsProcessed int, err error) {
	cursor := ""
	for {
		page, err := client.FetchPage(ctx, externalID, cursor)
		if err != nil {
			return 0, 0, err
		}
		pages++

		for _, rawEvent := range page.Runs {
			mapped, err := MapRunEvent(rawEvent)
			if err != nil {
				return 0, 0, err
			}

			if _, err := s.store.Upsert(ctx, runs.UpsertParams{
				PipelineID:      pipelineID,
				ExternalRunID:   mapped.ExternalRunID,
				Status:          mapped.Status,
				StartedAt:       mapped.StartedAt,
				FinishedAt:      mapped.FinishedAt,
				DurationSeconds: mapped.DurationSeconds,
				RowsProcessed:   mapped.RowsProcessed,
				ErrorMessage:    mapped.ErrorMessage,
				StatusReason:    mapped.StatusReason,
				Payload:         mapped.Payload,
				IngestedAt:      s.now().UTC(),
			}); err != nil {
				return 0, 0, fmt.Errorf("upserting run %s: %w", mapped.ExternalRunID, err)
			}
			runsProcessed++
		}

		if page.NextCursor == "" {
			return pages, runsProcessed, nil
		}
		cursor = page.NextCursor
	}
}
