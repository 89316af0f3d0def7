package port

import (
	"context"
	"time"
)

// AuditEvent describes a mutating call made through the console on behalf
// of a user.
type AuditEvent struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	EnvName     string         `json:"envName,omitempty"`
	StageName   string         `json:"stageName,omitempty"`
	Description string         `json:"description,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
