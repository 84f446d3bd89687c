package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/accountview"
	"github.com/aneshas/bankaccount/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"serve", "project", "ambar"} {
		sub, _, err := cmd.Find([]string{name})

		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func canceledRun(t *testing.T, args ...string) error {
	t.Helper()

	t.Setenv("BANK_HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("BANK_AMBAR_ADDR", "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRootCommand()
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

func TestCommandsStopWhenContextIsDone(t *testing.T) {
	for _, name := range []string{"serve", "project", "ambar"} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, canceledRun(t, name, "--memory", "--log-mode", "production"))
		})
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	t.Setenv("BANK_POLL_INTERVAL", "sometimes")

	assert.Error(t, canceledRun(t, "project", "--memory"))
}

func TestServeRebuildsAccountViewFromHistory(t *testing.T) {
	a := &app{
		cfg:    config.Config{Memory: true},
		logger: zaptest.NewLogger(t),
	}

	es, closeStore, err := a.openStore()
	require.NoError(t, err)

	defer closeStore()

	ctx := context.Background()

	b := a.newBank(es)

	_, err = b.Execute(ctx, "acc-1", account.OpenAccount{AccountID: "acc-1"})
	require.NoError(t, err)

	_, err = b.Execute(ctx, "acc-1", account.DepositMoney{Amount: decimal.RequireFromString("10")})
	require.NoError(t, err)

	e, err := a.newServer(ctx, es)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var s accountview.Summary

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.True(t, s.Opened)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 2, s.Version)
}
