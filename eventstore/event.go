package eventstore

import "time"

// EventToStore represents an event that is to be appended to a stream
type EventToStore struct {
	Event any

	// Optional
	ID                 string
	CausationEventID   string
	CorrelationEventID string
	Meta               map[string]string
	OccurredOn         time.Time
}

// StoredEvent holds stored event data and meta data.
// StreamVersion is the position of the event within its stream (starting at 1)
// and Sequence its position in the whole store.
type StoredEvent struct {
	Event any
	Meta  map[string]string

	ID                 string
	Sequence           uint64
	Type               string
	CausationEventID   *string
	CorrelationEventID *string
	StreamID           string
	StreamVersion      int
	OccurredOn         time.Time
}

// Projection represents a projection that should be able to handle
// projected events
type Projection func(StoredEvent) error
