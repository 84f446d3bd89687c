package eventstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NewProjector constructs a Projector
func NewProjector(s EventStreamer, opts ...ProjectorOpt) *Projector {
	p := Projector{
		streamer:   s,
		logger:     zap.NewNop(),
		retryAfter: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return &p
}

// ProjectorOpt configures a Projector
type ProjectorOpt func(*Projector)

// WithProjectorLogger sets the logger projection errors are reported to
func WithProjectorLogger(l *zap.Logger) ProjectorOpt {
	return func(p *Projector) {
		p.logger = l
	}
}

// WithRetryAfter sets the delay before a failed projection is resubscribed
func WithRetryAfter(d time.Duration) ProjectorOpt {
	return func(p *Projector) {
		p.retryAfter = d
	}
}

// WithSubscribeOpts sets the options each projection subscription is created with
func WithSubscribeOpts(opts ...SubAllOpt) ProjectorOpt {
	return func(p *Projector) {
		p.subOpts = opts
	}
}

// Projector is an event projector which will subscribe to an
// event stream (event store) and project events to each
// individual projection in an asynchronous manner
type Projector struct {
	streamer    EventStreamer
	projections []Projection
	logger      *zap.Logger
	retryAfter  time.Duration
	subOpts     []SubAllOpt
}

// Add effectively registers a projection with the projector
// Make sure to add all of your projections before calling Run
func (p *Projector) Add(projections ...Projection) {
	p.projections = append(p.projections, projections...)
}

// Run will start the projector and block until ctx is canceled or
// every subscription has been closed.
// A projection that errors out, or whose subscription fails, is
// resubscribed after the retry delay from the last event it handled
// successfully, so it sees the failed event again.
func (p *Projector) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i, projection := range p.projections {
		wg.Add(1)

		go func(i int, projection Projection) {
			defer wg.Done()

			logger := p.logger.With(zap.Int("projection", i))

			var offset uint64

			for {
				opts := append(append([]SubAllOpt{}, p.subOpts...), WithOffset(offset))

				sub, err := p.streamer.SubscribeAll(ctx, opts...)
				if err != nil {
					logger.Error("projector subscribe failed", zap.Error(err), zap.Uint64("offset", offset))
				} else {
					offset, err = p.run(ctx, sub, projection, offset, logger)

					sub.Close()

					if err == nil {
						return
					}
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(p.retryAfter):
				}
			}
		}(i, projection)
	}

	wg.Wait()

	return nil
}

func (p *Projector) run(
	ctx context.Context,
	sub Subscription,
	projection Projection,
	offset uint64,
	logger *zap.Logger) (uint64, error) {

	for {
		select {
		case data := <-sub.EventData:
			err := projection(data)
			if err != nil {
				logger.Error(
					"projection failed",
					zap.Error(err),
					zap.String("stream_id", data.StreamID),
					zap.Uint64("sequence", data.Sequence),
				)

				return offset, err
			}

			if data.Sequence > offset {
				offset = data.Sequence
			}

		case err := <-sub.Err:
			switch {
			case err == nil, errors.Is(err, io.EOF):
				// caught up, keep waiting for new events

			case errors.Is(err, ErrSubscriptionClosedByClient),
				errors.Is(err, context.Canceled),
				errors.Is(err, context.DeadlineExceeded):
				return offset, nil

			default:
				logger.Warn("projector subscription failed", zap.Error(err), zap.Uint64("offset", offset))

				return offset, err
			}

		case <-ctx.Done():
			return offset, nil
		}
	}
}

// FlushAfter wraps the projection passed in and it calls
// the projection itself as new events come (as usual) in addition to calling
// the provided flush function periodically each time flush interval expires.
// The first error returned by either of them is reported on the next call.
// Once ctx is done flush is called one last time and the wrapped projection
// returns ctx.Err().
func FlushAfter(
	ctx context.Context,
	p Projection,
	flush func() error,
	flushInt time.Duration) Projection {
	var (
		mu  sync.Mutex
		err error
	)

	setErr := func(e error) {
		if e == nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		if err == nil {
			err = e
		}
	}

	work := make(chan StoredEvent)

	go func() {
		ticker := time.NewTicker(flushInt)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				setErr(flush())

			case w := <-work:
				setErr(p(w))

			case <-ctx.Done():
				setErr(flush())

				return
			}
		}
	}()

	return func(data StoredEvent) error {
		mu.Lock()
		e := err
		mu.Unlock()

		if e != nil {
			return e
		}

		select {
		case work <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
