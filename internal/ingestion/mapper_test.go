package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehealth/internal/entity"
)

func TestMapRunEvent_Complete(t *testing.T) {
	raw := map[string]any{
		"external_run_id":  "run-42",
		"status":           "SUCCESS",
		"started_at":       "2026-03-01T08:00:00Z",
		"finished_at":      "2026-03-01T08:05:30Z",
		"duration_seconds": float64(330),
		"rows_processed":   float64(120000),
		"error_message":    nil,
	}

	fields, err := MapRunEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "run-42", fields.ExternalRunID)
	assert.Equal(t, entity.RunStatusSuccess, fields.Status)
	require.NotNil(t, fields.StartedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), *fields.StartedAt)
	require.NotNil(t, fields.FinishedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 5, 30, 0, time.UTC), *fields.FinishedAt)
	require.NotNil(t, fields.DurationSeconds)
	assert.Equal(t, 330, *fields.DurationSeconds)
	require.NotNil(t, fields.RowsProcessed)
	assert.Equal(t, int64(120000), *fields.RowsProcessed)
	assert.Nil(t, fields.ErrorMessage)
	assert.Nil(t, fields.StatusReason)
	assert.Equal(t, raw, fields.Payload)
}

func TestMapRunEvent_IDFallback(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{"id": "legacy-7", "status": "running"})
	require.NoError(t, err)
	assert.Equal(t, "legacy-7", fields.ExternalRunID)
}

func TestMapRunEvent_NumericIDStringified(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{"id": float64(9001), "status": "running"})
	require.NoError(t, err)
	assert.Equal(t, "9001", fields.ExternalRunID)
}

func TestMapRunEvent_MissingIdentity(t *testing.T) {
	_, err := MapRunEvent(map[string]any{"status": "running"})
	require.ErrorIs(t, err, ErrMapping)
	assert.Contains(t, err.Error(), "external_run_id")
}

func TestMapRunEvent_UnknownStatusGetsReason(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{
		"external_run_id": "run-1",
		"status":          "exploded",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusFailed, fields.Status)
	require.NotNil(t, fields.StatusReason)
	assert.Equal(t, "Unknown source status `exploded` normalized to `failed`", *fields.StatusReason)
}

func TestMapRunEvent_MissingStatusGetsReason(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{"external_run_id": "run-1"})
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusFailed, fields.Status)
	require.NotNil(t, fields.StatusReason)
	assert.Equal(t, "Missing source status; defaulted to `failed`", *fields.StatusReason)
}

func TestMapRunEvent_ExplicitStatusReasonWins(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{
		"external_run_id": "run-1",
		"status":          "exploded",
		"status_reason":   "operator marked manually",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusFailed, fields.Status)
	require.NotNil(t, fields.StatusReason)
	assert.Equal(t, "operator marked manually", *fields.StatusReason)
}

func TestNormalizeStatus_Vocabulary(t *testing.T) {
	tests := []struct {
		raw  any
		want entity.RunStatus
	}{
		{"running", entity.RunStatusRunning},
		{"in_progress", entity.RunStatusRunning},
		{"queued", entity.RunStatusRunning},
		{"pending", entity.RunStatusRunning},
		{"success", entity.RunStatusSuccess},
		{"Succeeded", entity.RunStatusSuccess},
		{"COMPLETED", entity.RunStatusSuccess},
		{"failed", entity.RunStatusFailed},
		{"failure", entity.RunStatusFailed},
		{"error", entity.RunStatusFailed},
		{"errored", entity.RunStatusFailed},
		{"canceled", entity.RunStatusCanceled},
		{"cancelled", entity.RunStatusCanceled},
		{"aborted", entity.RunStatusCanceled},
		{"skipped", entity.RunStatusSkipped},
		{"  Success  ", entity.RunStatusSuccess},
	}

	for _, tc := range tests {
		status, reason := NormalizeStatus(tc.raw)
		assert.Equal(t, tc.want, status, "status %v", tc.raw)
		assert.Empty(t, reason, "status %v", tc.raw)
	}
}

func TestNormalizeStatus_PreservesOriginalCasingInReason(t *testing.T) {
	status, reason := NormalizeStatus("WeIrD")
	assert.Equal(t, entity.RunStatusFailed, status)
	assert.Equal(t, "Unknown source status `WeIrD` normalized to `failed`", reason)
}

func TestMapRunEvent_Timestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want *time.Time
	}{
		{"rfc3339 utc", "2026-03-01T08:00:00Z", timePtr(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"rfc3339 offset", "2026-03-01T10:00:00+02:00", timePtr(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"naive treated as utc", "2026-03-01T08:00:00", timePtr(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"space separator", "2026-03-01 08:00:00", timePtr(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))},
		{"date only", "2026-03-01", timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
		{"empty string", "", nil},
		{"absent", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields, err := MapRunEvent(map[string]any{
				"external_run_id": "run-1",
				"status":          "success",
				"started_at":      tc.raw,
			})
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, fields.StartedAt)
				return
			}
			require.NotNil(t, fields.StartedAt)
			assert.True(t, tc.want.Equal(*fields.StartedAt), "got %v", *fields.StartedAt)
		})
	}
}

func TestMapRunEvent_BadTimestamps(t *testing.T) {
	for _, raw := range []any{"not-a-date", float64(1700000000), true} {
		_, err := MapRunEvent(map[string]any{
			"external_run_id": "run-1",
			"status":          "success",
			"finished_at":     raw,
		})
		require.ErrorIs(t, err, ErrMapping, "value %v", raw)
	}
}

func TestMapRunEvent_NumericCoercion(t *testing.T) {
	fields, err := MapRunEvent(map[string]any{
		"external_run_id":  "run-1",
		"status":           "success",
		"duration_seconds": "95",
		"rows_processed":   float64(1234.0),
	})
	require.NoError(t, err)
	require.NotNil(t, fields.DurationSeconds)
	assert.Equal(t, 95, *fields.DurationSeconds)
	require.NotNil(t, fields.RowsProcessed)
	assert.Equal(t, int64(1234), *fields.RowsProcessed)
}

func TestMapRunEvent_BadNumeric(t *testing.T) {
	_, err := MapRunEvent(map[string]any{
		"external_run_id":  "run-1",
		"status":           "success",
		"duration_seconds": "ninety",
	})
	require.ErrorIs(t, err, ErrMapping)
}

func TestMapRunEvent_PayloadKeepsUnknownFields(t *testing.T) {
	raw := map[string]any{
		"external_run_id": "run-1",
		"status":          "success",
		"trigger":         "schedule",
		"operator":        map[string]any{"team": "data-eng"},
	}

	fields, err := MapRunEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "schedule", fields.Payload["trigger"])
	assert.Equal(t, map[string]any{"team": "data-eng"}, fields.Payload["operator"])
}

func timePtr(t time.Time) *time.Time { return &t }
