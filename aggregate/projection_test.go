package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/aggregate"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShould_Restore_Envelope_From_Stored_Event(t *testing.T) {
	causation := "cause"
	occurredOn := time.Date(2024, 10, 12, 20, 7, 22, 0, time.UTC)

	env, ok := aggregate.Envelope[account.Event](account.AggregateType, eventstore.StoredEvent{
		Event:            account.AccountOpened{AccountID: "acc-1"},
		Meta:             map[string]string{"foo": "bar"},
		ID:               "event-id",
		Sequence:         42,
		CausationEventID: &causation,
		StreamID:         "bank_account-acc-1",
		StreamVersion:    3,
		OccurredOn:       occurredOn,
	})

	require.True(t, ok)
	assert.Equal(t, aggregate.EventEnvelope[account.Event]{
		AggregateID: "acc-1",
		Sequence:    3,
		EventID:     "event-id",
		CausationID: "cause",
		Payload:     account.AccountOpened{AccountID: "acc-1"},
		Meta:        map[string]string{"foo": "bar"},
		OccurredOn:  occurredOn,
	}, env)
}

func TestShould_Skip_Foreign_Stored_Events(t *testing.T) {
	cases := map[string]eventstore.StoredEvent{
		"other aggregate type": {Event: account.AccountOpened{}, StreamID: "customer-acc-1"},
		"no aggregate id":      {Event: account.AccountOpened{}, StreamID: "bank_account-"},
		"foreign event":        {Event: struct{}{}, StreamID: "bank_account-acc-1"},
	}

	for name, stored := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := aggregate.Envelope[account.Event](account.AggregateType, stored)

			assert.False(t, ok)
		})
	}
}

func TestShould_Replay_History_To_Query(t *testing.T) {
	es := memoryStore()
	b := newBank(t, es, account.NoopServices{})

	ctx := context.Background()

	_, err := b.Execute(ctx, "acc-1", account.OpenAccount{AccountID: "acc-1"})
	require.NoError(t, err)

	_, err = b.Execute(ctx, "acc-2", account.DepositMoney{Amount: amount("3")})
	require.NoError(t, err)

	require.NoError(t, es.AppendStream(ctx, "customer-c-1", 0, []eventstore.EventToStore{
		{Event: account.AccountOpened{AccountID: "c-1"}},
	}))

	var q recordingQuery

	require.NoError(t, aggregate.Replay[account.Event](ctx, es, account.AggregateType, &q))

	assert.Equal(t, []string{"acc-1", "acc-2"}, q.ids)
	require.Len(t, q.received, 2)
	assert.Equal(t, 1, q.received[0][0].Sequence)
	assert.True(t, account.EventsEqual(account.AccountOpened{AccountID: "acc-1"}, q.received[0][0].Payload))
}

func TestShould_Stop_Replay_On_Query_Error(t *testing.T) {
	es := memoryStore()
	b := newBank(t, es, account.NoopServices{})

	_, err := b.Execute(context.Background(), "acc-1", account.OpenAccount{AccountID: "acc-1"})
	require.NoError(t, err)

	wantErr := errors.New("view is full")

	q := recordingQuery{err: wantErr}

	err = aggregate.Replay[account.Event](context.Background(), es, account.AggregateType, &q)

	assert.ErrorIs(t, err, wantErr)
}
