package entity

import (
	"time"

	"github.com/google/uuid"
)

// RuleType selects how an alert rule is evaluated.
type RuleType string

const (
	RuleTypeOnFailure        RuleType = "on_failure"
	RuleTypeFailuresInWindow RuleType = "failures_in_window"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	return t == RuleTypeOnFailure || t == RuleTypeFailuresInWindow
}

// Channel is a delivery channel for alerts. Delivery itself is out of scope;
// the channel is stored as rule configuration only.
type Channel string

const (
	ChannelSlack   Channel = "slack"
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c == ChannelSlack || c == ChannelEmail || c == ChannelWebhook
}

// AlertRule scopes an alerting threshold to a client or a single pipeline.
// At least one of ClientID/PipelineID is set; failures_in_window rules carry
// both a threshold and a window.
type AlertRule struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      *uuid.UUID `json:"client_id,omitempty"`
	PipelineID    *uuid.UUID `json:"pipeline_id,omitempty"`
	RuleType      RuleType   `json:"rule_type"`
	Threshold     *int       `json:"threshold,omitempty"`
	WindowMinutes *int       `json:"window_minutes,omitempty"`
	Channel       Channel    `json:"channel"`
	Destination   string     `json:"destination"`
	IsEnabled     bool       `json:"is_enabled"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
