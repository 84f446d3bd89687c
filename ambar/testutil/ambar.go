// Package testutil builds ambar deliveries of account events for tests
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/ambar"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/shopspring/decimal"
)

// OccurredOn is the timestamp of every Row, in the format postgres emits
const OccurredOn = "2024-10-12T20:07:22.436271+00"

// Deposit is a deposit of 150.25 into an empty account
var Deposit = account.CustomerDepositedMoney{
	Amount:  decimal.RequireFromString("150.25"),
	Balance: decimal.RequireFromString("150.25"),
}

// Row encodes evt as the event table row at version of the account stream
func Row(t *testing.T, accountID string, version int, evt account.Event) ambar.Row {
	t.Helper()

	encoded, err := eventstore.NewJSONEncoder().Encode(evt)
	if err != nil {
		t.Fatal(err)
	}

	return ambar.Row{
		Sequence:      uint64(version),
		ID:            accountID + "-event",
		StreamID:      account.AggregateType + "-" + accountID,
		StreamVersion: version,
		Type:          encoded.Type,
		Data:          encoded.Data,
		OccurredOn:    OccurredOn,
	}
}

// Delivery creates the request body Ambar posts for row
func Delivery(t *testing.T, row ambar.Row) []byte {
	t.Helper()

	data, err := json.Marshal(ambar.Delivery{Row: row})
	if err != nil {
		t.Fatal(err)
	}

	return data
}
