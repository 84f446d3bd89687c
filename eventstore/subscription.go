package eventstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// SubAllConfig (configure using SubAllOpt)
type SubAllConfig struct {
	offset       uint64
	batchSize    int
	pollInterval time.Duration
}

// SubAllOpt represents subscribe to all events option
type SubAllOpt func(SubAllConfig) SubAllConfig

// WithOffset is a subscription / read all option that indicates a sequence in
// the event store from which to start reading events (exclusive)
func WithOffset(offset uint64) SubAllOpt {
	return func(cfg SubAllConfig) SubAllConfig {
		cfg.offset = offset

		return cfg
	}
}

// WithBatchSize is a subscription/read all option that specifies the read
// batch size (limit) when reading events from the event store
func WithBatchSize(size int) SubAllOpt {
	return func(cfg SubAllConfig) SubAllConfig {
		cfg.batchSize = size

		return cfg
	}
}

// WithPollInterval is a subscription/read all option that specifies the polling
// interval of the underlying storage
func WithPollInterval(d time.Duration) SubAllOpt {
	return func(cfg SubAllConfig) SubAllConfig {
		cfg.pollInterval = d

		return cfg
	}
}

// Subscription represents ReadAll subscription that is used for streaming
// incoming events
type Subscription struct {
	// Err chan will produce any errors that might occur while reading events
	// If Err produces io.EOF error, that indicates that we have caught up
	// with the event store and that there are no more events to read after which
	// the subscription itself will continue polling the event store for new events
	// each time we empty the Err channel. This means that reading from Err (in
	// case of io.EOF) can be strategically used in order to achieve backpressure
	Err       chan error
	EventData chan StoredEvent

	close chan struct{}
}

// Close closes the subscription and halts the polling
func (s Subscription) Close() {
	if s.close == nil {
		return
	}

	select {
	case s.close <- struct{}{}:
	default:
	}
}

type fetchFunc func(ctx context.Context, offset uint64, limit int) ([]gormEvent, error)

// EventStreamer represents an event stream that can be subscribed to.
// EventStore and MemoryStore are both EventStreamer implementations
type EventStreamer interface {
	SubscribeAll(context.Context, ...SubAllOpt) (Subscription, error)
}

func subscribe(ctx context.Context, enc Encoder, fetch fetchFunc, opts ...SubAllOpt) (Subscription, error) {
	cfg := SubAllConfig{
		offset:       0,
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		cfg = opt(cfg)
	}

	if cfg.batchSize < 1 {
		return Subscription{}, fmt.Errorf("batch size should be at least 1")
	}

	sub := Subscription{
		Err:       make(chan error, 1),
		EventData: make(chan StoredEvent, cfg.batchSize),
		close:     make(chan struct{}, 1),
	}

	// terminal errors replace a pending io.EOF the client has not read yet
	terminate := func(err error) {
		for {
			select {
			case sub.Err <- err:
				return
			default:
				select {
				case <-sub.Err:
				default:
				}
			}
		}
	}

	go func() {
		var done error

		for {
			select {
			case <-sub.close:
				terminate(ErrSubscriptionClosedByClient)

				return
			case <-ctx.Done():
				terminate(ctx.Err())

				return
			case <-time.After(cfg.pollInterval):
				// Make sure client reads all buffered events
				if done != nil {
					if len(sub.EventData) != 0 {
						break
					}

					terminate(done)

					return
				}

				evts, err := fetch(ctx, cfg.offset, cfg.batchSize)
				if err != nil {
					done = err

					break
				}

				if len(evts) == 0 {
					select {
					case sub.Err <- io.EOF:
					default:
					}

					break
				}

				cfg.offset = evts[len(evts)-1].Sequence

				decoded, err := decodeEvents(enc, evts)
				if err != nil {
					done = err

					break
				}

				for _, evt := range decoded {
					select {
					case sub.EventData <- evt:
					case <-sub.close:
						terminate(ErrSubscriptionClosedByClient)

						return
					case <-ctx.Done():
						terminate(ctx.Err())

						return
					}
				}
			}
		}
	}()

	return sub, nil
}

func readAll(ctx context.Context, s EventStreamer, opts ...SubAllOpt) ([]StoredEvent, error) {
	sub, err := s.SubscribeAll(ctx, append([]SubAllOpt{WithPollInterval(time.Millisecond)}, opts...)...)
	if err != nil {
		return nil, err
	}

	defer sub.Close()

	var events []StoredEvent

	for {
		select {
		case data := <-sub.EventData:
			events = append(events, data)

		case err := <-sub.Err:
			if errors.Is(err, io.EOF) {
				// drain whatever was buffered before EOF was signaled
				for len(sub.EventData) > 0 {
					events = append(events, <-sub.EventData)
				}

				return events, nil
			}

			return nil, err
		}
	}
}
