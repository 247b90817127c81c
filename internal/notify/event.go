// Package notify fans analysis events out to live subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventAnalysisComplete = "analysis_complete"
	EventRegimeShift      = "regime_shift"
)

// DefaultSource is the source stamped on events built by NewEvent.
const DefaultSource = "trade-pattern-lab"

// Event is the envelope sent to every sink.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope with a fresh random id.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    DefaultSource,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes an event from JSON bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", e.ID, err)
	}
	return &e, nil
}

// Publisher delivers events to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *Event) error
}
