package eventstore

import (
	"context"
	"sync"
)

// NewMemoryStore constructs an in-memory event store. Events still go
// through the encoder so that what is read back matches what a database
// backed store would return.
func NewMemoryStore(enc Encoder) *MemoryStore {
	return &MemoryStore{
		enc:     enc,
		streams: make(map[string][]int),
	}
}

// MemoryStore is an in-memory implementation of the event store contract,
// meant for tests and local development
type MemoryStore struct {
	enc Encoder

	mu      sync.RWMutex
	events  []gormEvent
	streams map[string][]int
}

// AppendStream appends events to a stream with the same optimistic
// concurrency semantics as EventStore.AppendStream
func (ms *MemoryStore) AppendStream(ctx context.Context, stream string, expectedVer int, events []EventToStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := encodeEvents(ms.enc, stream, expectedVer, events)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.streams[stream]) != expectedVer {
		return ErrConcurrencyCheckFailed
	}

	for _, rec := range records {
		rec.Sequence = uint64(len(ms.events) + 1)

		ms.streams[stream] = append(ms.streams[stream], len(ms.events))
		ms.events = append(ms.events, rec)
	}

	return nil
}

// ReadStream reads all events of a stream in order.
// ErrStreamNotFound is returned for streams with no events
func (ms *MemoryStore) ReadStream(ctx context.Context, stream string) ([]StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()

	idx, ok := ms.streams[stream]
	if !ok {
		ms.mu.RUnlock()

		return nil, ErrStreamNotFound
	}

	records := make([]gormEvent, len(idx))

	for i, at := range idx {
		records[i] = ms.events[at]
	}

	ms.mu.RUnlock()

	return decodeEvents(ms.enc, records)
}

// SubscribeAll streams all events of the store ordered by sequence
func (ms *MemoryStore) SubscribeAll(ctx context.Context, opts ...SubAllOpt) (Subscription, error) {
	return subscribe(ctx, ms.enc, ms.fetch, opts...)
}

// ReadAll reads all events of the store (see EventStore.ReadAll)
func (ms *MemoryStore) ReadAll(ctx context.Context, opts ...SubAllOpt) ([]StoredEvent, error) {
	return readAll(ctx, ms, opts...)
}

func (ms *MemoryStore) fetch(_ context.Context, offset uint64, limit int) ([]gormEvent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	// sequences are 1 based and contiguous
	if offset >= uint64(len(ms.events)) {
		return nil, nil
	}

	end := int(offset) + limit
	if end > len(ms.events) {
		end = len(ms.events)
	}

	out := make([]gormEvent, end-int(offset))

	copy(out, ms.events[offset:end])

	return out, nil
}
