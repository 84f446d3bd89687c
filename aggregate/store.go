package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aneshas/bankaccount/eventstore"
	"github.com/google/uuid"
)

// ErrUnexpectedEvent is returned when a stream holds an event the aggregate does not accept
var ErrUnexpectedEvent = errors.New("unexpected event in stream")

// EventStore represents event store
type EventStore interface {
	AppendStream(ctx context.Context, id string, version int, events []eventstore.EventToStore) error
	ReadStream(ctx context.Context, id string) ([]eventstore.StoredEvent, error)
}

// Applier folds a single event into aggregate state
type Applier[E any] interface {
	Apply(evt E)
}

// EventEnvelope wraps a committed event with its stream position and meta data
type EventEnvelope[E any] struct {
	AggregateID   string
	Sequence      int
	EventID       string
	CausationID   string
	CorrelationID string
	Payload       E
	Meta          map[string]string
	OccurredOn    time.Time
}

// NewStore constructs new event sourced aggregate store.
// aggregateType prefixes every stream id so that different aggregate types
// can share an event store. newAggregate must return an aggregate in its
// initial state.
func NewStore[A Applier[E], E any](eventStore EventStore, aggregateType string, newAggregate func() A) *Store[A, E] {
	return &Store[A, E]{
		eventStore:    eventStore,
		aggregateType: aggregateType,
		newAggregate:  newAggregate,
	}
}

// Store represents event sourced aggregate store
type Store[A Applier[E], E any] struct {
	eventStore    EventStore
	aggregateType string
	newAggregate  func() A
}

// StreamID returns the event store stream of an aggregate
func (s *Store[A, E]) StreamID(id string) string {
	return streamPrefix(s.aggregateType) + id
}

// Load rehydrates an aggregate by folding its whole event stream.
// An aggregate with no events is returned in its initial state with version 0.
func (s *Store[A, E]) Load(ctx context.Context, id string) (A, int, error) {
	agg := s.newAggregate()

	storedEvents, err := s.eventStore.ReadStream(ctx, s.StreamID(id))
	if errors.Is(err, eventstore.ErrStreamNotFound) {
		return agg, eventstore.InitialStreamVersion, nil
	}

	if err != nil {
		var zero A

		return zero, 0, err
	}

	for _, stored := range storedEvents {
		evt, ok := stored.Event.(E)
		if !ok {
			var zero A

			return zero, 0, fmt.Errorf("%w: %s (%T)", ErrUnexpectedEvent, stored.Type, stored.Event)
		}

		agg.Apply(evt)
	}

	return agg, len(storedEvents), nil
}

// Commit appends events to the aggregate stream expecting it to be at version.
// Meta data, causation and correlation ids are taken from ctx.
func (s *Store[A, E]) Commit(ctx context.Context, id string, version int, events []E) ([]EventEnvelope[E], error) {
	meta := MetaFromCtx(ctx)
	causationID := CausationIDFromCtx(ctx)
	correlationID := CorrelationIDFromCtx(ctx)

	now := time.Now().UTC()

	toStore := make([]eventstore.EventToStore, len(events))
	envelopes := make([]EventEnvelope[E], len(events))

	for i, evt := range events {
		eventID, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		toStore[i] = eventstore.EventToStore{
			Event:              evt,
			ID:                 eventID.String(),
			CausationEventID:   causationID,
			CorrelationEventID: correlationID,
			Meta:               meta,
			OccurredOn:         now,
		}

		envelopes[i] = EventEnvelope[E]{
			AggregateID:   id,
			Sequence:      version + i + 1,
			EventID:       eventID.String(),
			CausationID:   causationID,
			CorrelationID: correlationID,
			Payload:       evt,
			Meta:          meta,
			OccurredOn:    now,
		}
	}

	err := s.eventStore.AppendStream(ctx, s.StreamID(id), version, toStore)
	if err != nil {
		return nil, err
	}

	return envelopes, nil
}
