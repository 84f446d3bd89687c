// Package account implements the bank account aggregate.
//
// The aggregate is a state machine driven by commands: Handle validates a
// command against the current state and returns the events that would
// result, Apply folds a single event into the state. State is only ever
// changed by Apply, so the event history is the system of record.
package account

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AggregateType identifies bank account streams in the event store
const AggregateType = "bank_account"

// BankAccount represents the bank account aggregate state.
// The zero value is an unopened account with zero balance.
type BankAccount struct {
	AccountID string          `json:"account_id"`
	Opened    bool            `json:"opened"`
	Balance   decimal.Decimal `json:"balance"`
}

// Handle validates cmd against the current state and returns the events
// representing the transition. It either returns all of the events or
// an error and no events.
func (a BankAccount) Handle(ctx context.Context, cmd Command, svc Services) ([]Event, error) {
	switch c := cmd.(type) {
	case OpenAccount:
		if a.Opened {
			return nil, ErrAccountAlreadyOpened
		}

		return []Event{
			AccountOpened{AccountID: c.AccountID},
		}, nil

	case DepositMoney:
		return []Event{
			CustomerDepositedMoney{
				Amount:  c.Amount,
				Balance: a.Balance.Add(c.Amount),
			},
		}, nil

	case WithdrawMoney:
		balance := a.Balance.Sub(c.Amount)
		if balance.IsNegative() {
			return nil, ErrInsufficientFunds
		}

		if c.AtmID != "" {
			if err := svc.AtmWithdrawal(ctx, c.AtmID, c.Amount); err != nil {
				return nil, err
			}
		}

		return []Event{
			CustomerWithdrewCash{
				Amount:  c.Amount,
				Balance: balance,
			},
		}, nil

	case WriteCheck:
		balance := a.Balance.Sub(c.Amount)
		if balance.IsNegative() {
			return nil, ErrInsufficientFunds
		}

		if err := svc.ValidateCheck(ctx, a.AccountID, c.CheckNumber); err != nil {
			return nil, err
		}

		return []Event{
			CustomerWroteCheck{
				CheckNumber: c.CheckNumber,
				Amount:      c.Amount,
				Balance:     balance,
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// Apply mutates the state with a single historical event.
// Balance carrying events are trusted, the balance is not recomputed.
// Apply never fails, events it does not know (including nil) leave the state as is.
func (a *BankAccount) Apply(evt Event) {
	switch e := evt.(type) {
	case AccountOpened:
		a.AccountID = e.AccountID
		a.Opened = true

	case CustomerDepositedMoney:
		a.Balance = e.Balance

	case CustomerWithdrewCash:
		a.Balance = e.Balance

	case CustomerWroteCheck:
		a.Balance = e.Balance
	}
}
