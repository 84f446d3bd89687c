package aggregate

import (
	"context"
	"strings"

	"github.com/aneshas/bankaccount/eventstore"
)

// Envelope turns an event read from a stream of aggregateType back into an
// EventEnvelope. ok is false for streams of other aggregate types and for
// events which are not an E.
func Envelope[E any](aggregateType string, stored eventstore.StoredEvent) (EventEnvelope[E], bool) {
	id, ok := strings.CutPrefix(stored.StreamID, streamPrefix(aggregateType))
	if !ok || id == "" {
		return EventEnvelope[E]{}, false
	}

	evt, ok := stored.Event.(E)
	if !ok {
		return EventEnvelope[E]{}, false
	}

	return EventEnvelope[E]{
		AggregateID:   id,
		Sequence:      stored.StreamVersion,
		EventID:       stored.ID,
		CausationID:   deref(stored.CausationEventID),
		CorrelationID: deref(stored.CorrelationEventID),
		Payload:       evt,
		Meta:          stored.Meta,
		OccurredOn:    stored.OccurredOn,
	}, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// Projection adapts q to an eventstore.Projection. Events of aggregateType
// streams are dispatched one at a time, everything else is skipped.
func Projection[E any](ctx context.Context, aggregateType string, q Query[E]) eventstore.Projection {
	return func(stored eventstore.StoredEvent) error {
		env, ok := Envelope[E](aggregateType, stored)
		if !ok {
			return nil
		}

		return q.Dispatch(ctx, env.AggregateID, []EventEnvelope[E]{env})
	}
}

// AllReader reads every event in the store
type AllReader interface {
	ReadAll(ctx context.Context, opts ...eventstore.SubAllOpt) ([]eventstore.StoredEvent, error)
}

// Replay dispatches every stored event of aggregateType streams to q,
// in store order. It is used to warm up queries before commands are served.
func Replay[E any](ctx context.Context, r AllReader, aggregateType string, q Query[E]) error {
	events, err := r.ReadAll(ctx)
	if err != nil {
		return err
	}

	project := Projection(ctx, aggregateType, q)

	for _, stored := range events {
		if err := project(stored); err != nil {
			return err
		}
	}

	return nil
}

func streamPrefix(aggregateType string) string {
	return aggregateType + "-"
}
