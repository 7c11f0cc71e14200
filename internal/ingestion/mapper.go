package ingestion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pipehealth/internal/entity"
)

// ErrMapping marks partner run events that cannot be normalized into
// canonical run fields. A mapping failure aborts the whole sync pass.
var ErrMapping = errors.New("cannot map partner run event")

var statusVocabulary = map[string]entity.RunStatus{
	"running":     entity.RunStatusRunning,
	"in_progress": entity.RunStatusRunning,
	"queued":      entity.RunStatusRunning,
	"pending":     entity.RunStatusRunning,
	"success":     entity.RunStatusSuccess,
	"succeeded":   entity.RunStatusSuccess,
	"completed":   entity.RunStatusSuccess,
	"failed":      entity.RunStatusFailed,
	"failure":     entity.RunStatusFailed,
	"error":       entity.RunStatusFailed,
	"errored":     entity.RunStatusFailed,
	"canceled":    entity.RunStatusCanceled,
	"cancelled":   entity.RunStatusCanceled,
	"aborted":     entity.RunStatusCanceled,
	"skipped":     entity.RunStatusSkipped,
}

// RunFields is the canonical form of one partner run event, ready for the
// run store. Payload always carries the full raw event for audit traceability.
type RunFields struct {
	ExternalRunID   string
	Status          entity.RunStatus
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int
	RowsProcessed   *int64
	ErrorMessage    *string
	StatusReason    *string
	Payload         map[string]any
}

// MapRunEvent normalizes one raw partner run event. It is pure: no I/O, no
// mutation of the input.
func MapRunEvent(raw map[string]any) (RunFields, error) {
	externalRunID, err := extractExternalRunID(raw)
	if err != nil {
		return RunFields{}, err
	}

	status, normalizationReason := NormalizeStatus(raw["status"])

	startedAt, err := parseUTCTimestamp(raw["started_at"])
	if err != nil {
		return RunFields{}, err
	}
	finishedAt, err := parseUTCTimestamp(raw["finished_at"])
	if err != nil {
		return RunFields{}, err
	}

	durationSeconds, err := asOptionalInt(raw["duration_seconds"])
	if err != nil {
		return RunFields{}, err
	}
	rowsProcessed, err := asOptionalInt64(raw["rows_processed"])
	if err != nil {
		return RunFields{}, err
	}

	statusReason := asOptionalString(raw["status_reason"])
	if statusReason == nil && normalizationReason != "" {
		statusReason = &normalizationReason
	}

	return RunFields{
		ExternalRunID:   externalRunID,
		Status:          status,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		DurationSeconds: durationSeconds,
		RowsProcessed:   rowsProcessed,
		ErrorMessage:    asOptionalString(raw["error_message"]),
		StatusReason:    statusReason,
		Payload:         raw,
	}, nil
}

// NormalizeStatus maps a source status to the canonical vocabulary. Unknown
// or missing statuses default to failed with a generated reason; the reason
// is empty for recognized values.
func NormalizeStatus(rawStatus any) (entity.RunStatus, string) {
	if rawStatus == nil {
		return entity.RunStatusFailed, "Missing source status; defaulted to `failed`"
	}

	original := stringify(rawStatus)
	normalized := strings.ToLower(strings.TrimSpace(original))
	if mapped, ok := statusVocabulary[normalized]; ok {
		return mapped, ""
	}

	return entity.RunStatusFailed,
		fmt.Sprintf("Unknown source status `%s` normalized to `failed`", original)
}

func extractExternalRunID(raw map[string]any) (string, error) {
	candidate := asOptionalString(raw["external_run_id"])
	if candidate == nil {
		candidate = asOptionalString(raw["id"])
	}
	if candidate == nil {
		return "", fmt.Errorf("%w: missing required run identity field `external_run_id` or `id`", ErrMapping)
	}
	return *candidate, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseUTCTimestamp(value any) (*time.Time, error) {
	if value == nil || value == "" {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: timestamp fields must be ISO-8601 strings", ErrMapping)
	}

	trimmed := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid timestamp value: %s", ErrMapping, s)
}

func asOptionalInt(value any) (*int, error) {
	v, err := asOptionalInt64(value)
	if err != nil || v == nil {
		return nil, err
	}
	i := int(*v)
	return &i, nil
}

func asOptionalInt64(value any) (*int64, error) {
	if value == nil || value == "" {
		return nil, nil
	}

	switch v := value.(type) {
	case float64:
		i := int64(v)
		return &i, nil
	case int:
		i := int64(v)
		return &i, nil
	case int64:
		return &v, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: expected integer-compatible value, got %q", ErrMapping, v)
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("%w: expected integer-compatible value, got %v", ErrMapping, value)
	}
}

func asOptionalString(value any) *string {
	if value == nil || value == "" {
		return nil
	}
	s := stringify(value)
	return &s
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}
