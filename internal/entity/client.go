package entity

import (
	"time"

	"github.com/google/uuid"
)

// Client represents a client organization whose pipelines we monitor.
type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
