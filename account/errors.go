package account

import "errors"

// Error represents a command rejection. It carries a human readable message only.
type Error string

// Error implements error
func (e Error) Error() string { return string(e) }

const (
	// ErrInsufficientFunds is returned when a withdrawal or a check would
	// bring the balance below zero
	ErrInsufficientFunds = Error("Insufficient funds")

	// ErrAccountAlreadyOpened is returned when opening an account that is already open
	ErrAccountAlreadyOpened = Error("Account already opened")
)

// ErrUnknownCommand is returned for commands the account does not know how to handle
var ErrUnknownCommand = errors.New("unknown command")
