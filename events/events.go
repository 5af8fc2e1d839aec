// Package events provides the in-process activity bus that downstream
// consumers (notification delivery, dashboards) subscribe to.
package events

import (
	"context"
	"time"
)

// Type identifies the kind of activity event.
type Type string

const (
	TypeTaskCreated      Type = "task_created"
	TypeTaskAssigned     Type = "task_assigned"
	TypeStatusChanged    Type = "status_changed"
	TypeVerificationStep Type = "verification_step" // review checkpoint reached
	TypeOverrideRecorded Type = "override_recorded"
)

// Event is one activity record emitted by the repository or pipeline.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	TaskID    string            `json:"task_id"`
	Actor     string            `json:"actor"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Handler processes delivered events.
type Handler func(ctx context.Context, ev *Event) error

// TypeAll subscribes a handler to every event type.
const TypeAll Type = "*"

// Bus delivers activity events to subscribers. Publishers treat it as a
// fire-and-forget sink; handler errors never affect the publishing
// operation.
type Bus interface {
	// Publish delivers the event to subscribers of its type and to
	// wildcard subscribers.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events of the given type
	// (TypeAll for everything). Returns an unsubscribe function.
	Subscribe(t Type, handler Handler) (unsubscribe func())

	// History returns the most recent events for the given task, newest
	// last. An empty taskID matches all tasks.
	History(taskID string, limit int) []*Event
}
