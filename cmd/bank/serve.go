package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/accountview"
	"github.com/aneshas/bankaccount/internal/httpapi"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve account commands and balances over http",
		Long: `Serve account commands over http.

Commands are posted as json envelopes:

  curl -XPOST localhost:8080/accounts/acc-1/commands \
    -d '{"type":"DepositMoney","payload":{"amount":"100.00"}}'

The account view is rebuilt from the event store on startup and kept up
to date synchronously after each command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	es, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	e, err := a.newServer(cmd.Context(), es)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	if err != nil {
		return err
	}

	a.logger.Info("serving http", zap.String("addr", a.cfg.HTTPAddr))

	return serveUntilDone(cmd.Context(), func() error {
		return e.Start(a.cfg.HTTPAddr)
	}, e.Shutdown)
}

// newServer rebuilds the account view from es and wires the http api
func (a *app) newServer(ctx context.Context, es eventStore) (*echo.Echo, error) {
	view := accountview.New()

	if err := view.Rebuild(ctx, es, account.AggregateType); err != nil {
		return nil, fmt.Errorf("rebuild account view: %w", err)
	}

	a.logger.Info("account view rebuilt", zap.Int("accounts", view.Len()))

	b := a.newBank(es)
	b.Add(view, accountview.NewLoggingQuery(a.logger.Named("query")))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	httpapi.New(b, view, a.logger.Named("http")).Register(e)

	return e, nil
}
