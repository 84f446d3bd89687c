package account

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Services are operations outside of the domain which the account
// needs in order to complete some of its commands eg. a payment gateway.
// Implementations may block on I/O and should respect ctx cancellation.
type Services interface {
	AtmWithdrawal(ctx context.Context, atmID string, amount decimal.Decimal) error
	ValidateCheck(ctx context.Context, account string, check string) error
}

// AtmError indicates that an ATM refused or failed to confirm a withdrawal
type AtmError struct {
	AtmID string
	Err   error
}

func (e *AtmError) Error() string {
	return fmt.Sprintf("atm %s: %v", e.AtmID, e.Err)
}

func (e *AtmError) Unwrap() error { return e.Err }

// CheckError indicates that a check could not be validated
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// NoopServices accepts every ATM withdrawal and every check
type NoopServices struct{}

// AtmWithdrawal succeeds unless ctx is done
func (NoopServices) AtmWithdrawal(ctx context.Context, atmID string, _ decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return &AtmError{AtmID: atmID, Err: err}
	}

	return nil
}

// ValidateCheck succeeds unless ctx is done
func (NoopServices) ValidateCheck(ctx context.Context, _ string, check string) error {
	if err := ctx.Err(); err != nil {
		return &CheckError{Check: check, Err: err}
	}

	return nil
}
