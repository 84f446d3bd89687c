package account

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Command is a request to change the state of a bank account.
// The set of commands is closed, only the types declared in this file implement it.
type Command interface {
	isCommand()
}

// OpenAccount opens a new account
type OpenAccount struct {
	AccountID string `json:"account_id"`
}

// DepositMoney deposits the amount to the account
type DepositMoney struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawMoney withdraws cash from the account. If AtmID is set
// the withdrawal has to be confirmed by the ATM first.
type WithdrawMoney struct {
	Amount decimal.Decimal `json:"amount"`
	AtmID  string          `json:"atm_id,omitempty"`
}

// WriteCheck writes a check against the account
type WriteCheck struct {
	CheckNumber string          `json:"check_number"`
	Amount      decimal.Decimal `json:"amount"`
}

func (OpenAccount) isCommand()   {}
func (DepositMoney) isCommand()  {}
func (WithdrawMoney) isCommand() {}
func (WriteCheck) isCommand()    {}

// CommandEnvelope is the wire form of a command
//
//	{"type": "DepositMoney", "payload": {"amount": "100.00"}}
type CommandEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeCommand decodes a command from its json envelope
func DecodeCommand(data []byte) (Command, error) {
	var env CommandEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode command envelope: %w", err)
	}

	var cmd Command

	switch env.Type {
	case "OpenAccount":
		cmd = &OpenAccount{}
	case "DepositMoney":
		cmd = &DepositMoney{}
	case "WithdrawMoney":
		cmd = &WithdrawMoney{}
	case "WriteCheck":
		cmd = &WriteCheck{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, cmd); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}

	switch c := cmd.(type) {
	case *OpenAccount:
		return *c, nil
	case *DepositMoney:
		return *c, nil
	case *WithdrawMoney:
		return *c, nil
	case *WriteCheck:
		return *c, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
}
