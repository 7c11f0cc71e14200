package clients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pipehealth/internal/entity"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, params CreateParams) (entity.Client, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(entity.Client), args.Error(1)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (entity.Client, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Client), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, isActive *bool) ([]entity.Client, error) {
	args := m.Called(ctx, isActive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Client), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (entity.Client, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(entity.Client), args.Error(1)
}

func (m *mockRepository) RunSummary(ctx context.Context, id uuid.UUID, since, until time.Time) (RunSummary, error) {
	args := m.Called(ctx, id, since, until)
	return args.Get(0).(RunSummary), args.Error(1)
}

func TestRunSummary_DefaultsWindowBounds(t *testing.T) {
	clientID := uuid.New()
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, clientID).Return(entity.Client{ID: clientID}, nil)
	repo.On("RunSummary", mock.Anything, clientID,
		time.Unix(0, 0).UTC(),
		mock.MatchedBy(func(until time.Time) bool {
			return time.Since(until) < time.Minute
		})).
		Return(RunSummary{ClientID: clientID}, nil)

	_, err := NewService(repo).RunSummary(context.Background(), clientID, nil, nil)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRunSummary_ExplicitBounds(t *testing.T) {
	clientID := uuid.New()
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	repo := new(mockRepository)
	repo.On("Get", mock.Anything, clientID).Return(entity.Client{ID: clientID}, nil)
	repo.On("RunSummary", mock.Anything, clientID, since, until).
		Return(RunSummary{ClientID: clientID, Since: since, Until: until}, nil)

	summary, err := NewService(repo).RunSummary(context.Background(), clientID, &since, &until)
	require.NoError(t, err)
	assert.Equal(t, since, summary.Since)
	repo.AssertExpectations(t)
}

func TestRunSummary_RejectsInvertedWindow(t *testing.T) {
	since := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewService(new(mockRepository)).RunSummary(context.Background(), uuid.New(), &since, &until)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRunSummary_UnknownClient(t *testing.T) {
	clientID := uuid.New()
	repo := new(mockRepository)
	repo.On("Get", mock.Anything, clientID).Return(entity.Client{}, ErrNotFound)

	_, err := NewService(repo).RunSummary(context.Background(), clientID, nil, nil)
	require.ErrorIs(t, err, ErrNotFound)
}
