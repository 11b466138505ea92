package broadcast

import (
	"context"
	"encoding/json"
	"time"
)

// Event names published on session channels.
const (
	EventCredentialIssued    = "credential-issued"
	EventAttendanceCommitted = "attendance-committed"
)

// Event is an advisory UI refresh hint. The registry and the attendance
// store remain the source of truth; events carry no delivery guarantee for
// observers that are not connected at publish time and are never replayed.
type Event struct {
	Name      string          `json:"name"`
	Channel   string          `json:"channel,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event with a JSON-encoded payload.
func NewEvent(name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: raw, Timestamp: time.Now().UTC()}, nil
}

// Broadcaster fans events out to the current subscribers of a channel.
// Publish is fire-and-forget; at most one delivery per subscriber per event.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, evt Event) error
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
}
