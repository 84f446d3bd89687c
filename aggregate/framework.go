// Package aggregate executes commands against event sourced aggregates.
//
// A command goes through load -> handle -> commit -> apply -> dispatch:
// the aggregate is rebuilt from its stream, validates the command and
// proposes events, the events are appended with an optimistic concurrency
// check, folded into the in-memory aggregate and finally handed to queries.
package aggregate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Root represents an event sourced aggregate. Handle must not mutate the
// aggregate, it only proposes events. Apply is the only way state changes.
type Root[C, E, S any] interface {
	Applier[E]

	Handle(ctx context.Context, cmd C, svc S) ([]E, error)
}

// Query is notified of events after they have been committed
type Query[E any] interface {
	Dispatch(ctx context.Context, aggregateID string, events []EventEnvelope[E]) error
}

// QueryFunc adapts a func to Query
type QueryFunc[E any] func(ctx context.Context, aggregateID string, events []EventEnvelope[E]) error

// Dispatch calls f
func (f QueryFunc[E]) Dispatch(ctx context.Context, aggregateID string, events []EventEnvelope[E]) error {
	return f(ctx, aggregateID, events)
}

// Option configures a Framework
type Option func(*frameworkCfg)

type frameworkCfg struct {
	logger *zap.Logger
}

// WithLogger sets the framework logger
func WithLogger(l *zap.Logger) Option {
	return func(cfg *frameworkCfg) {
		cfg.logger = l
	}
}

// New constructs a Framework executing commands against aggregates kept in store.
// services are passed to every Handle call.
func New[A Root[C, E, S], C, E, S any](store *Store[A, E], services S, opts ...Option) *Framework[A, C, E, S] {
	cfg := frameworkCfg{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Framework[A, C, E, S]{
		store:    store,
		services: services,
		logger:   cfg.logger,
	}
}

// Framework is the command execution pipeline of an aggregate type.
// It does no locking of its own, concurrent commands against the same
// aggregate are rejected by the store's optimistic concurrency check.
type Framework[A Root[C, E, S], C, E, S any] struct {
	store    *Store[A, E]
	services S
	queries  []Query[E]
	logger   *zap.Logger
}

// Add registers queries which are notified after each successful commit
// Make sure to add all of your queries before calling Execute
func (f *Framework[A, C, E, S]) Add(queries ...Query[E]) {
	f.queries = append(f.queries, queries...)
}

// Execute handles cmd against the aggregate identified by id and returns
// the aggregate with the resulting events applied.
// Rejected commands return the aggregate's error unwrapped and commit nothing.
// Store errors are wrapped, in which case no events have been applied.
// Query errors are logged and never returned.
func (f *Framework[A, C, E, S]) Execute(ctx context.Context, id string, cmd C) (A, error) {
	var zero A

	logger := f.logger.With(zap.String("aggregate_id", id), zap.String("command", fmt.Sprintf("%T", cmd)))

	agg, version, err := f.store.Load(ctx, id)
	if err != nil {
		logger.Error("aggregate load failed", zap.Error(err))

		return zero, fmt.Errorf("load aggregate %s: %w", id, err)
	}

	events, err := agg.Handle(ctx, cmd, f.services)
	if err != nil {
		logger.Info("command rejected", zap.Error(err))

		return zero, err
	}

	if len(events) == 0 {
		return agg, nil
	}

	envelopes, err := f.store.Commit(ctx, id, version, events)
	if err != nil {
		logger.Error("commit failed", zap.Int("version", version), zap.Error(err))

		return zero, fmt.Errorf("commit aggregate %s: %w", id, err)
	}

	for _, evt := range events {
		agg.Apply(evt)
	}

	logger.Debug("command executed", zap.Int("events", len(events)), zap.Int("version", version+len(events)))

	f.dispatch(context.WithoutCancel(ctx), id, envelopes, logger)

	return agg, nil
}

// ExecuteWithMetadata is Execute with meta data attached to every committed event
func (f *Framework[A, C, E, S]) ExecuteWithMetadata(ctx context.Context, id string, cmd C, meta map[string]string) (A, error) {
	return f.Execute(CtxWithMeta(ctx, meta), id, cmd)
}

// Load returns the current state of an aggregate
func (f *Framework[A, C, E, S]) Load(ctx context.Context, id string) (A, error) {
	agg, _, err := f.store.Load(ctx, id)

	return agg, err
}

func (f *Framework[A, C, E, S]) dispatch(ctx context.Context, id string, envelopes []EventEnvelope[E], logger *zap.Logger) {
	for i, q := range f.queries {
		if err := q.Dispatch(ctx, id, envelopes); err != nil {
			logger.Warn("query dispatch failed", zap.Int("query", i), zap.Error(err))
		}
	}
}
