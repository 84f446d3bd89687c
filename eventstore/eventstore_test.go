package eventstore_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aneshas/bankaccount/eventstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var integration = flag.Bool("integration", false, "perform integration tests")

type SomeEvent struct {
	UserID string
}

type store interface {
	eventstore.EventStreamer

	AppendStream(ctx context.Context, stream string, expectedVer int, events []eventstore.EventToStore) error
	ReadStream(ctx context.Context, stream string) ([]eventstore.StoredEvent, error)
	ReadAll(ctx context.Context, opts ...eventstore.SubAllOpt) ([]eventstore.StoredEvent, error)
}

// eachStore runs f against the in-memory store and, with -integration,
// against a sqlite backed store
func eachStore(t *testing.T, f func(t *testing.T, s store)) {
	t.Run("memory", func(t *testing.T) {
		f(t, eventstore.NewMemoryStore(eventstore.NewJSONEncoder(SomeEvent{})))
	})

	t.Run("sqlite", func(t *testing.T) {
		if !*integration {
			t.Skip("skipping integration tests")
		}

		es, cleanup := eventStore(t)

		defer cleanup()

		f(t, es)
	})
}

func toStore(evts ...any) []eventstore.EventToStore {
	out := make([]eventstore.EventToStore, len(evts))

	for i, evt := range evts {
		out[i] = eventstore.EventToStore{Event: evt}
	}

	return out
}

func someEvents() []any {
	return []any{
		SomeEvent{
			UserID: "user-1",
		},
		SomeEvent{
			UserID: "user-2",
		},
		SomeEvent{
			UserID: "user-2",
		},
	}
}

func TestShouldReadAppendedEvents(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		evts := someEvents()

		ctx := context.Background()
		stream := "some-stream"
		meta := map[string]string{
			"ip": "127.0.0.1",
		}

		toAppend := toStore(evts...)

		for i := range toAppend {
			toAppend[i].Meta = meta
			toAppend[i].CausationEventID = "causation-id"
		}

		err := es.AppendStream(ctx, stream, eventstore.InitialStreamVersion, toAppend)
		require.NoError(t, err)

		got, err := es.ReadStream(ctx, stream)
		require.NoError(t, err)
		require.Len(t, got, len(evts))

		for i, evt := range got {
			assert.Equal(t, evts[i], evt.Event)
			assert.Equal(t, meta, evt.Meta)
			assert.Equal(t, "SomeEvent", evt.Type)
			assert.Equal(t, stream, evt.StreamID)
			assert.Equal(t, i+1, evt.StreamVersion)
			assert.NotEmpty(t, evt.ID)
			assert.False(t, evt.OccurredOn.IsZero())
			require.NotNil(t, evt.CausationEventID)
			assert.Equal(t, "causation-id", *evt.CausationEventID)
			assert.Nil(t, evt.CorrelationEventID)
		}
	})
}

func TestShouldWriteToDifferentStreams(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx := context.Background()

		err := es.AppendStream(ctx, "some-stream", eventstore.InitialStreamVersion, toStore(someEvents()...))
		require.NoError(t, err)

		err = es.AppendStream(ctx, "another-stream", eventstore.InitialStreamVersion, toStore(someEvents()...))
		require.NoError(t, err)

		got, err := es.ReadStream(ctx, "another-stream")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestShouldAppendToExistingStream(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx := context.Background()
		stream := "some-stream"

		err := es.AppendStream(ctx, stream, eventstore.InitialStreamVersion, toStore(someEvents()...))
		require.NoError(t, err)

		err = es.AppendStream(ctx, stream, 3, toStore(SomeEvent{UserID: "user-4"}))
		require.NoError(t, err)

		got, err := es.ReadStream(ctx, stream)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, SomeEvent{UserID: "user-4"}, got[3].Event)
		assert.Equal(t, 4, got[3].StreamVersion)
	})
}

func TestOptimisticConcurrencyCheckIsPerformed(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx := context.Background()
		stream := "some-stream"

		err := es.AppendStream(ctx, stream, eventstore.InitialStreamVersion, toStore(SomeEvent{UserID: "user-1"}))
		require.NoError(t, err)

		err = es.AppendStream(ctx, stream, eventstore.InitialStreamVersion, toStore(SomeEvent{UserID: "user-2"}))
		assert.ErrorIs(t, err, eventstore.ErrConcurrencyCheckFailed)

		got, err := es.ReadStream(ctx, stream)
		require.NoError(t, err)
		assert.Len(t, got, 1, "rejected append should not leave events behind")
	})
}

func TestReadStreamReturnsNotFoundError(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		_, err := es.ReadStream(context.Background(), "foo-stream")

		assert.ErrorIs(t, err, eventstore.ErrStreamNotFound)
	})
}

func TestSubscribeAllWithOffsetCatchesUpToNewEvents(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx := context.Background()

		err := es.AppendStream(ctx, "stream-one", eventstore.InitialStreamVersion, toStore(someEvents()...))
		require.NoError(t, err)

		sub, err := es.SubscribeAll(
			ctx,
			eventstore.WithOffset(1),
			eventstore.WithPollInterval(10*time.Millisecond),
		)
		require.NoError(t, err)

		defer sub.Close()

		got := readAllSub(t, sub, 2)

		assert.Len(t, got, 2)

		err = es.AppendStream(ctx, "stream-two", eventstore.InitialStreamVersion, toStore(append(someEvents(), SomeEvent{UserID: "user-4"})...))
		require.NoError(t, err)

		got = readAllSub(t, sub, 4)

		assert.Len(t, got, 4)
		assert.Equal(t, "stream-two", got[0].StreamID)
	})
}

func readAllSub(t *testing.T, sub eventstore.Subscription, expect int) []eventstore.StoredEvent {
	t.Helper()

	var got []eventstore.StoredEvent

	timeout := time.After(5 * time.Second)

	for len(got) < expect {
		select {
		case data := <-sub.EventData:
			got = append(got, data)

		case err := <-sub.Err:
			if err != nil && !errors.Is(err, io.EOF) {
				t.Fatal(err)
			}

		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", expect, len(got))
		}
	}

	return got
}

func TestReadAllShouldReadAllEvents(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			err := es.AppendStream(ctx, fmt.Sprintf("stream-%d", i), eventstore.InitialStreamVersion, toStore(someEvents()...))
			require.NoError(t, err)
		}

		got, err := es.ReadAll(ctx, eventstore.WithBatchSize(4))
		require.NoError(t, err)
		require.Len(t, got, 15)

		for i, evt := range got {
			assert.Equal(t, uint64(i+1), evt.Sequence)
		}

		got, err = es.ReadAll(ctx, eventstore.WithOffset(10))
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}

func TestSubscribeAllCancelsSubscriptionOnContextCancel(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		ctx, cancel := context.WithCancel(context.Background())

		sub, err := es.SubscribeAll(ctx, eventstore.WithPollInterval(10*time.Millisecond))
		require.NoError(t, err)

		defer sub.Close()

		cancel()

		for {
			err := <-sub.Err
			if errors.Is(err, io.EOF) {
				continue
			}

			assert.ErrorIs(t, err, context.Canceled)

			return
		}
	})
}

func TestSubscribeAllCancelsSubscriptionWithClose(t *testing.T) {
	eachStore(t, func(t *testing.T, es store) {
		sub, err := es.SubscribeAll(context.Background(), eventstore.WithPollInterval(10*time.Millisecond))
		require.NoError(t, err)

		sub.Close()

		for {
			err := <-sub.Err
			if errors.Is(err, io.EOF) {
				continue
			}

			assert.ErrorIs(t, err, eventstore.ErrSubscriptionClosedByClient)

			return
		}
	})
}

type enc struct {
	encErr error
	decErr error
}

func (e enc) Encode(evt any) (*eventstore.EncodedEvt, error) {
	if e.encErr != nil {
		return nil, e.encErr
	}

	return eventstore.NewJSONEncoder(SomeEvent{}).Encode(evt)
}

func (e enc) Decode(evt *eventstore.EncodedEvt) (any, error) {
	if e.decErr != nil {
		return nil, e.decErr
	}

	return eventstore.NewJSONEncoder(SomeEvent{}).Decode(evt)
}

func TestEncoderEncodeErrorsPropagated(t *testing.T) {
	anErr := errors.New("an error")

	es := eventstore.NewMemoryStore(enc{encErr: anErr})

	err := es.AppendStream(context.Background(), "stream", 0, toStore(SomeEvent{UserID: "123"}))

	assert.ErrorIs(t, err, anErr)
}

func TestEncoderDecodeErrorsPropagated(t *testing.T) {
	anErr := errors.New("an error")

	es := eventstore.NewMemoryStore(enc{decErr: anErr})

	err := es.AppendStream(context.Background(), "stream", 0, toStore(SomeEvent{UserID: "123"}))
	require.NoError(t, err)

	_, err = es.ReadStream(context.Background(), "stream")

	assert.ErrorIs(t, err, anErr)
}

func TestEncoderDecodeErrorsPropagatedOnSubscribeAll(t *testing.T) {
	anErr := errors.New("an error")

	es := eventstore.NewMemoryStore(enc{decErr: anErr})

	err := es.AppendStream(context.Background(), "stream", 0, toStore(SomeEvent{UserID: "123"}))
	require.NoError(t, err)

	sub, err := es.SubscribeAll(context.Background(), eventstore.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	defer sub.Close()

	assert.ErrorIs(t, <-sub.Err, anErr)
}

func TestNewEncoderMustBeProvided(t *testing.T) {
	_, err := eventstore.New(nil, eventstore.WithSQLiteDB("foo"))

	assert.Error(t, err)
}

func TestNewStorageMustBeProvided(t *testing.T) {
	_, err := eventstore.New(eventstore.NewJSONEncoder())

	assert.Error(t, err)

	_, err = eventstore.New(
		eventstore.NewJSONEncoder(),
		eventstore.WithSQLiteDB("foo"),
		eventstore.WithPostgresDB("postgres://localhost"),
	)

	assert.Error(t, err)
}

func TestAppendStreamValidation(t *testing.T) {
	es := eventstore.EventStore{}

	cases := []struct {
		stream string
		ver    int
		evts   []eventstore.EventToStore
	}{
		{
			stream: "",
			ver:    0,
			evts:   toStore(SomeEvent{UserID: "user-123"}),
		},
		{
			stream: "s",
			ver:    -1,
			evts:   toStore(SomeEvent{UserID: "user-123"}),
		},
		{
			stream: "stream",
			ver:    0,
			evts:   nil,
		},
		{
			stream: "stream",
			ver:    0,
			evts:   []eventstore.EventToStore{},
		},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			err := es.AppendStream(context.Background(), tc.stream, tc.ver, tc.evts)

			assert.Error(t, err, "validation error should have happened")
		})
	}
}

func TestSubscribeAllMinimumBatchSize(t *testing.T) {
	es := eventstore.EventStore{}

	_, err := es.SubscribeAll(context.Background(), eventstore.WithBatchSize(-1))

	assert.Error(t, err, "minimum batch size should have been validated")
}

func TestReadAllMinimumBatchSize(t *testing.T) {
	es := eventstore.EventStore{}

	_, err := es.ReadAll(context.Background(), eventstore.WithBatchSize(-1))

	assert.Error(t, err, "minimum batch size should have been validated")
}

func TestReadStreamValidation(t *testing.T) {
	es := eventstore.EventStore{}

	_, err := es.ReadStream(context.Background(), "")

	assert.Error(t, err, "stream name should be provided")
}

func eventStore(t *testing.T) (*eventstore.EventStore, func()) {
	return eventStoreWithDec(t, eventstore.NewJSONEncoder(SomeEvent{}))
}

func eventStoreWithDec(t *testing.T, enc eventstore.Encoder) (*eventstore.EventStore, func()) {
	es, err := eventstore.New(enc, eventstore.WithSQLiteDB(filepath.Join(t.TempDir(), "events.db")))
	if err != nil {
		t.Fatalf("error creating es: %v", err)
	}

	return es, func() {
		err := es.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
}
