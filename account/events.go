package account

import "github.com/shopspring/decimal"

// Event is a bank account domain event. The set of events is closed,
// only the types declared in this file implement it.
type Event interface {
	// EventType returns the name the event is stored under
	EventType() string

	// EventVersion returns the schema version of the event payload
	EventVersion() string

	isEvent()
}

const eventVersion = "1.0"

// AccountOpened domain event indicates that the account has been opened
type AccountOpened struct {
	AccountID string `json:"account_id"`
}

// CustomerDepositedMoney domain event indicates that a deposit has been made.
// Balance is the balance after the deposit.
type CustomerDepositedMoney struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// CustomerWithdrewCash domain event indicates that cash has been withdrawn.
// Balance is the balance after the withdrawal.
type CustomerWithdrewCash struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// CustomerWroteCheck domain event indicates that a check has been written
// against the account. Balance is the balance after the check.
type CustomerWroteCheck struct {
	CheckNumber string          `json:"check_number"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

func (AccountOpened) EventType() string          { return "AccountOpened" }
func (CustomerDepositedMoney) EventType() string { return "CustomerDepositedMoney" }
func (CustomerWithdrewCash) EventType() string   { return "CustomerWithdrewCash" }
func (CustomerWroteCheck) EventType() string     { return "CustomerWroteCheck" }

func (AccountOpened) EventVersion() string          { return eventVersion }
func (CustomerDepositedMoney) EventVersion() string { return eventVersion }
func (CustomerWithdrewCash) EventVersion() string   { return eventVersion }
func (CustomerWroteCheck) EventVersion() string     { return eventVersion }

func (AccountOpened) isEvent()          {}
func (CustomerDepositedMoney) isEvent() {}
func (CustomerWithdrewCash) isEvent()   {}
func (CustomerWroteCheck) isEvent()     {}

// Events returns a zero value of every account event. It is meant to be
// used for encoder registration, eg. eventstore.NewJSONEncoder(account.Events()...)
func Events() []any {
	return []any{
		AccountOpened{},
		CustomerDepositedMoney{},
		CustomerWithdrewCash{},
		CustomerWroteCheck{},
	}
}

// EventsEqual reports whether two events are of the same type and carry
// the same values. Amounts are compared numerically so 100 and 100.00
// are considered equal.
func EventsEqual(a, b Event) bool {
	switch x := a.(type) {
	case AccountOpened:
		y, ok := b.(AccountOpened)

		return ok && x == y

	case CustomerDepositedMoney:
		y, ok := b.(CustomerDepositedMoney)

		return ok && x.Amount.Equal(y.Amount) && x.Balance.Equal(y.Balance)

	case CustomerWithdrewCash:
		y, ok := b.(CustomerWithdrewCash)

		return ok && x.Amount.Equal(y.Amount) && x.Balance.Equal(y.Balance)

	case CustomerWroteCheck:
		y, ok := b.(CustomerWroteCheck)

		return ok &&
			x.CheckNumber == y.CheckNumber &&
			x.Amount.Equal(y.Amount) &&
			x.Balance.Equal(y.Balance)

	default:
		return false
	}
}
