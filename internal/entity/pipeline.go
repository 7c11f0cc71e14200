package entity

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the system a pipeline runs on.
type Platform string

const (
	PlatformAirflow   Platform = "airflow"
	PlatformDBT       Platform = "dbt"
	PlatformCron      Platform = "cron"
	PlatformVendorAPI Platform = "vendor_api"
	PlatformCustom    Platform = "custom"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAirflow, PlatformDBT, PlatformCron, PlatformVendorAPI, PlatformCustom:
		return true
	}
	return false
}

// PipelineType classifies what a pipeline does.
type PipelineType string

const (
	PipelineTypeIngestion   PipelineType = "ingestion"
	PipelineTypeTransform   PipelineType = "transform"
	PipelineTypeQuality     PipelineType = "quality"
	PipelineTypeExport      PipelineType = "export"
	PipelineTypeHealthcheck PipelineType = "healthcheck"
)

// Valid reports whether t is one of the known pipeline types.
func (t PipelineType) Valid() bool {
	switch t {
	case PipelineTypeIngestion, PipelineTypeTransform, PipelineTypeQuality,
		PipelineTypeExport, PipelineTypeHealthcheck:
		return true
	}
	return false
}

// Pipeline is one monitored data pipeline owned by a client.
type Pipeline struct {
	ID           uuid.UUID    `json:"id"`
	ClientID     uuid.UUID    `json:"client_id"`
	Name         string       `json:"name"`
	Platform     Platform     `json:"platform"`
	ExternalID   *string      `json:"external_id,omitempty"`
	PipelineType PipelineType `json:"pipeline_type"`
	Description  *string      `json:"description,omitempty"`
	Environment  string       `json:"environment"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
