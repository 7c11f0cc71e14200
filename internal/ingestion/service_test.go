package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pipehealth/internal/entity"
	"pipehealth/internal/partner"
	"pipehealth/internal/runs"
)

type mockEligibility struct {
	mock.Mock
}

func (m *mockEligibility) ListIngestionEligible(ctx context.Context, onlyActive bool) ([]entity.Pipeline, error) {
	args := m.Called(ctx, onlyActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Pipeline), args.Error(1)
}

// scriptedFetcher replays pages keyed by external pipeline id and records
// the cursors each call asked for.
type scriptedFetcher struct {
	pages   map[string][]partner.Page
	err     error
	cursors []string
	calls   int
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, pipelineExternalID, cursor string) (partner.Page, error) {
	f.cursors = append(f.cursors, cursor)
	f.calls++
	if f.err != nil {
		return partner.Page{}, f.err
	}
	queue := f.pages[pipelineExternalID]
	if len(queue) == 0 {
		return partner.Page{}, fmt.Errorf("unexpected fetch for %q", pipelineExternalID)
	}
	page := queue[0]
	f.pages[pipelineExternalID] = queue[1:]
	return page, nil
}

type storeKey struct {
	pipelineID    uuid.UUID
	externalRunID string
}

// memoryStore keeps the latest upsert per (pipeline_id, external_run_id),
// mirroring the unique constraint the real table enforces.
type memoryStore struct {
	byKey   map[storeKey]runs.UpsertParams
	upserts int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byKey: map[storeKey]runs.UpsertParams{}}
}

func (s *memoryStore) Upsert(ctx context.Context, params runs.UpsertParams) (entity.Run, error) {
	if s.err != nil {
		return entity.Run{}, s.err
	}
	s.upserts++
	s.byKey[storeKey{params.PipelineID, params.ExternalRunID}] = params
	return entity.Run{
		ID:            uuid.New(),
		PipelineID:    params.PipelineID,
		ExternalRunID: params.ExternalRunID,
		Status:        params.Status,
	}, nil
}

func eligiblePipeline(externalID string) entity.Pipeline {
	return entity.Pipeline{
		ID:           uuid.New(),
		Name:         "nightly-" + externalID,
		PipelineType: entity.PipelineTypeIngestion,
		ExternalID:   &externalID,
		IsActive:     true,
	}
}

func runEvent(id, status string) map[string]any {
	return map[string]any{"external_run_id": id, "status": status}
}

func TestSync_PaginatesToExhaustion(t *testing.T) {
	pipeline := eligiblePipeline("ext-1")
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{pipeline}, nil)

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {
			{Runs: []map[string]any{runEvent("r1", "success"), runEvent("r2", "failed")}, NextCursor: "cursor-2"},
			{Runs: []map[string]any{runEvent("r3", "running")}, NextCursor: "cursor-3"},
			{Runs: []map[string]any{runEvent("r4", "success")}, NextCursor: ""},
		},
	}}
	store := newMemoryStore()

	result, err := NewService(eligibility, store).Sync(context.Background(), fetcher)
	require.NoError(t, err)

	assert.Equal(t, Result{PipelinesProcessed: 1, PagesProcessed: 3, RunsProcessed: 4}, result)
	assert.Equal(t, []string{"", "cursor-2", "cursor-3"}, fetcher.cursors)
	assert.Len(t, store.byKey, 4)
	eligibility.AssertExpectations(t)
}

func TestSync_NoEligiblePipelines(t *testing.T) {
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{}, nil)

	fetcher := &scriptedFetcher{}
	result, err := NewService(eligibility, newMemoryStore()).Sync(context.Background(), fetcher)
	require.NoError(t, err)

	assert.Equal(t, Result{}, result)
	assert.Zero(t, fetcher.calls)
}

func TestSync_SkipsPipelinesWithoutExternalID(t *testing.T) {
	withID := eligiblePipeline("ext-1")
	empty := ""
	withoutID := entity.Pipeline{ID: uuid.New(), PipelineType: entity.PipelineTypeIngestion, ExternalID: &empty, IsActive: true}

	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{withoutID, withID}, nil)

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{runEvent("r1", "success")}, NextCursor: ""}},
	}}

	result, err := NewService(eligibility, newMemoryStore()).Sync(context.Background(), fetcher)
	require.NoError(t, err)
	assert.Equal(t, Result{PipelinesProcessed: 1, PagesProcessed: 1, RunsProcessed: 1}, result)
}

func TestSync_EmptyPageStillCountsPipeline(t *testing.T) {
	pipeline := eligiblePipeline("ext-empty")
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{pipeline}, nil)

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-empty": {{Runs: nil, NextCursor: ""}},
	}}
	store := newMemoryStore()

	result, err := NewService(eligibility, store).Sync(context.Background(), fetcher)
	require.NoError(t, err)
	assert.Equal(t, Result{PipelinesProcessed: 1, PagesProcessed: 1, RunsProcessed: 0}, result)
	assert.Zero(t, store.upserts)
}

func TestSync_FetchErrorAbortsPass(t *testing.T) {
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{eligiblePipeline("ext-1")}, nil)

	fetchErr := fmt.Errorf("%w with status 500", partner.ErrRequest)
	fetcher := &scriptedFetcher{err: fetchErr}

	_, err := NewService(eligibility, newMemoryStore()).Sync(context.Background(), fetcher)
	require.ErrorIs(t, err, partner.ErrRequest)
}

func TestSync_MappingErrorAbortsPass(t *testing.T) {
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{eligiblePipeline("ext-1")}, nil)

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{{"status": "success"}}, NextCursor: ""}},
	}}
	store := newMemoryStore()

	_, err := NewService(eligibility, store).Sync(context.Background(), fetcher)
	require.ErrorIs(t, err, ErrMapping)
	assert.Zero(t, store.upserts)
}

func TestSync_StoreErrorAbortsPass(t *testing.T) {
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{eligiblePipeline("ext-1")}, nil)

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{runEvent("r1", "success")}, NextCursor: ""}},
	}}
	store := newMemoryStore()
	store.err = errors.New("deadlock detected")

	_, err := NewService(eligibility, store).Sync(context.Background(), fetcher)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting run r1")
}

func TestSync_ListErrorAbortsPass(t *testing.T) {
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return(nil, errors.New("connection reset"))

	_, err := NewService(eligibility, newMemoryStore()).Sync(context.Background(), &scriptedFetcher{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing eligible pipelines")
}

func TestSync_ReplayIsIdempotent(t *testing.T) {
	pipeline := eligiblePipeline("ext-1")
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{pipeline}, nil)

	page := partner.Page{
		Runs:       []map[string]any{runEvent("r1", "success"), runEvent("r2", "failed")},
		NextCursor: "",
	}
	store := newMemoryStore()
	service := NewService(eligibility, store)

	for i := 0; i < 2; i++ {
		fetcher := &scriptedFetcher{pages: map[string][]partner.Page{"ext-1": {page}}}
		result, err := service.Sync(context.Background(), fetcher)
		require.NoError(t, err)
		assert.Equal(t, Result{PipelinesProcessed: 1, PagesProcessed: 1, RunsProcessed: 2}, result)
	}

	// replay rewrites the same keys instead of growing the set
	assert.Len(t, store.byKey, 2)
	assert.Equal(t, 4, store.upserts)
}

func TestSync_ReplayOverwritesStatusProgression(t *testing.T) {
	pipeline := eligiblePipeline("ext-1")
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{pipeline}, nil)

	store := newMemoryStore()
	service := NewService(eligibility, store)

	first := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{runEvent("r1", "running")}, NextCursor: ""}},
	}}
	_, err := service.Sync(context.Background(), first)
	require.NoError(t, err)

	second := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{{
			"external_run_id": "r1",
			"status":          "success",
			"finished_at":     "2026-03-01T09:00:00Z",
		}}, NextCursor: ""}},
	}}
	_, err = service.Sync(context.Background(), second)
	require.NoError(t, err)

	stored := store.byKey[storeKey{pipeline.ID, "r1"}]
	assert.Equal(t, entity.RunStatusSuccess, stored.Status)
	require.NotNil(t, stored.FinishedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), *stored.FinishedAt)
}

func TestSync_StampsIngestedAt(t *testing.T) {
	pipeline := eligiblePipeline("ext-1")
	eligibility := new(mockEligibility)
	eligibility.On("ListIngestionEligible", mock.Anything, true).
		Return([]entity.Pipeline{pipeline}, nil)

	store := newMemoryStore()
	service := NewService(eligibility, store)
	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	fetcher := &scriptedFetcher{pages: map[string][]partner.Page{
		"ext-1": {{Runs: []map[string]any{runEvent("r1", "success")}, NextCursor: ""}},
	}}
	_, err := service.Sync(context.Background(), fetcher)
	require.NoError(t, err)

	stored := store.byKey[storeKey{pipeline.ID, "r1"}]
	assert.Equal(t, fixed, stored.IngestedAt)
}
