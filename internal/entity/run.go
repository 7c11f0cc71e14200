package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the canonical status vocabulary for pipeline runs.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusSuccess  RunStatus = "success"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
	RunStatusSkipped  RunStatus = "skipped"
)

// RunStatuses lists the canonical statuses in a stable order.
var RunStatuses = []RunStatus{
	RunStatusRunning,
	RunStatusSuccess,
	RunStatusFailed,
	RunStatusCanceled,
	RunStatusSkipped,
}

// Valid reports whether s is one of the canonical run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusSuccess, RunStatusFailed, RunStatusCanceled, RunStatusSkipped:
		return true
	}
	return false
}

// Run is one execution record for a pipeline. A run is identified by
// (pipeline_id, external_run_id); later ingestions of the same external run
// id replace the row wholesale.
type Run struct {
	ID              uuid.UUID      `json:"id"`
	PipelineID      uuid.UUID      `json:"pipeline_id"`
	ExternalRunID   string         `json:"external_run_id"`
	Status          RunStatus      `json:"status"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	DurationSeconds *int           `json:"duration_seconds,omitempty"`
	RowsProcessed   *int64         `json:"rows_processed,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	StatusReason    *string        `json:"status_reason,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	IngestedAt      time.Time      `json:"ingested_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
