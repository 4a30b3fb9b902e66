// Package pubsub provides a generic publish/subscribe event system.
// The consumer index publishes module arrivals on it and the logger publishes
// log lines; the live view listens to both.
package pubsub

import "time"

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
