// Package ambar receives events pushed by an Ambar (https://ambar.cloud)
// data destination. Ambar tails the event table and posts every row to an
// http endpoint. Rows are decoded back into aggregate events and handed to
// queries exactly as the command pipeline would, so read models can be kept
// up to date without polling.
package ambar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aneshas/bankaccount/aggregate"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/relvacode/iso8601"
)

var (
	// ErrRetry asks Ambar to deliver the row again
	ErrRetry = errors.New("retry")

	// ErrNoRetry acknowledges the row as if it was projected.
	// Wrap it to keep the cause around for logging.
	ErrNoRetry = errors.New("no retry")

	// ErrKeepItGoing reports the failure but lets Ambar move on to the next row
	ErrKeepItGoing = errors.New("keep it going")
)

// Row is a row of the event table as delivered by Ambar
type Row struct {
	Sequence           uint64  `json:"sequence"`
	ID                 string  `json:"id"`
	StreamID           string  `json:"stream_id"`
	StreamVersion      int     `json:"stream_version"`
	Type               string  `json:"type"`
	Data               string  `json:"data"`
	Meta               *string `json:"meta"`
	CausationEventID   *string `json:"causation_event_id"`
	CorrelationEventID *string `json:"correlation_event_id"`
	OccurredOn         string  `json:"occurred_on"`
}

// Delivery is the request body Ambar posts for each row
type Delivery struct {
	Row Row `json:"payload"`
}

// Decoder decodes event table rows, eventstore.JSONEncoder is one
type Decoder interface {
	Decode(*eventstore.EncodedEvt) (any, error)
}

// New constructs an Ambar handler for streams of aggregateType
func New[E any](dec Decoder, aggregateType string) *Ambar[E] {
	return &Ambar[E]{
		dec:           dec,
		aggregateType: aggregateType,
	}
}

// Ambar dispatches delivered rows of one aggregate type to queries
type Ambar[E any] struct {
	dec           Decoder
	aggregateType string
}

// Project decodes a delivery and dispatches the event it carries to q.
// Malformed deliveries fail with ErrRetry. Rows of other aggregate types
// and events the decoder does not know are acknowledged and skipped.
// Query errors are returned as is.
func (a *Ambar[E]) Project(ctx context.Context, q aggregate.Query[E], body []byte) error {
	var d Delivery

	if err := json.Unmarshal(body, &d); err != nil {
		return fmt.Errorf("%w: decode delivery: %v", ErrRetry, err)
	}

	stored, err := a.stored(d.Row)
	if errors.Is(err, eventstore.ErrEventNotRegistered) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: row %d: %v", ErrRetry, d.Row.Sequence, err)
	}

	env, ok := aggregate.Envelope[E](a.aggregateType, stored)
	if !ok {
		return nil
	}

	return q.Dispatch(ctx, env.AggregateID, []aggregate.EventEnvelope[E]{env})
}

func (a *Ambar[E]) stored(row Row) (eventstore.StoredEvent, error) {
	evt, err := a.dec.Decode(&eventstore.EncodedEvt{
		Data: row.Data,
		Type: row.Type,
	})
	if err != nil {
		return eventstore.StoredEvent{}, err
	}

	occurredOn, err := iso8601.ParseString(row.OccurredOn)
	if err != nil {
		return eventstore.StoredEvent{}, fmt.Errorf("occurred_on: %w", err)
	}

	var meta map[string]string

	if row.Meta != nil {
		if err := json.Unmarshal([]byte(*row.Meta), &meta); err != nil {
			return eventstore.StoredEvent{}, fmt.Errorf("meta: %w", err)
		}
	}

	return eventstore.StoredEvent{
		Event:              evt,
		Meta:               meta,
		ID:                 row.ID,
		Sequence:           row.Sequence,
		Type:               row.Type,
		CausationEventID:   row.CausationEventID,
		CorrelationEventID: row.CorrelationEventID,
		StreamID:           row.StreamID,
		StreamVersion:      row.StreamVersion,
		OccurredOn:         occurredOn,
	}, nil
}
