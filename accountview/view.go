// Package accountview maintains a read model of bank account balances.
// The same view can be fed synchronously by the command pipeline (as an
// aggregate.Query) or asynchronously from the event store (as an
// eventstore.Projection).
package accountview

import (
	"context"
	"sync"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/aggregate"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/shopspring/decimal"
)

// Summary is the read side representation of an account
type Summary struct {
	AccountID string          `json:"account_id"`
	Opened    bool            `json:"opened"`
	Balance   decimal.Decimal `json:"balance"`
	Checks    []string        `json:"checks"`
	Version   int             `json:"version"`
}

// New constructs an empty View
func New() *View {
	return &View{
		accounts: make(map[string]Summary),
	}
}

// View is a concurrency safe in-memory account read model
type View struct {
	mu       sync.RWMutex
	accounts map[string]Summary
}

// Get returns the summary of an account
func (v *View) Get(id string) (Summary, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s, ok := v.accounts[id]
	if !ok {
		return Summary{}, false
	}

	s.Checks = append([]string(nil), s.Checks...)

	return s, true
}

// Dispatch implements aggregate.Query
func (v *View) Dispatch(_ context.Context, aggregateID string, events []aggregate.EventEnvelope[account.Event]) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, env := range events {
		v.apply(aggregateID, env.Sequence, env.Payload)
	}

	return nil
}

// Projection returns an eventstore.Projection feeding the view.
// aggregateType is the stream prefix used by the aggregate store, streams
// of other aggregate types and unknown events are skipped.
func (v *View) Projection(aggregateType string) eventstore.Projection {
	return aggregate.Projection[account.Event](context.Background(), aggregateType, v)
}

// Rebuild folds the whole history of aggregateType streams read from r into
// the view. Call it before the view starts receiving dispatched events.
func (v *View) Rebuild(ctx context.Context, r aggregate.AllReader, aggregateType string) error {
	return aggregate.Replay[account.Event](ctx, r, aggregateType, v)
}

// Len returns the number of accounts in the view
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return len(v.accounts)
}

// apply folds evt into the summary unless the summary already reflects
// version, which makes redelivery from projectors and webhooks harmless
func (v *View) apply(id string, version int, evt account.Event) {
	s := v.accounts[id]

	if version != 0 && version <= s.Version {
		return
	}

	s.AccountID = id

	switch e := evt.(type) {
	case account.AccountOpened:
		s.Opened = true

	case account.CustomerDepositedMoney:
		s.Balance = e.Balance

	case account.CustomerWithdrewCash:
		s.Balance = e.Balance

	case account.CustomerWroteCheck:
		s.Balance = e.Balance
		s.Checks = append(s.Checks, e.CheckNumber)
	}

	if version != 0 {
		s.Version = version
	}

	v.accounts[id] = s
}
