package domain

import "time"

// Event is one append-only entry in an investigation's log. Status and
// every derived view are computed by scanning the log; events themselves
// are never mutated or removed.
type Event struct {
	Sequence  int                    `json:"sequence"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// HypothesisID returns the "hypothesis_id" data field, if present.
func (e Event) HypothesisID() string {
	if v, ok := e.Data["hypothesis_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Query returns the "query" data field, if present.
func (e Event) Query() string {
	if v, ok := e.Data["query"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Reason returns the "reason" data field, if present.
func (e Event) Reason() string {
	if v, ok := e.Data["reason"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// NewEvent builds an Event with the given sequence number and timestamp.
func NewEvent(seq int, eventType EventType, timestamp time.Time, data map[string]interface{}) Event {
	return Event{Sequence: seq, Type: eventType, Timestamp: timestamp, Data: data}
}
