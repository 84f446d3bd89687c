package main

import (
	"crypto/subtle"
	"net/http"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/accountview"
	"github.com/aneshas/bankaccount/ambar"
	"github.com/aneshas/bankaccount/ambar/echoambar"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAmbarCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ambar",
		Short: "Receive account events pushed by Ambar",
		Long: `Serve the Ambar data destination webhook.

Ambar posts stored events to /projections/accounts/v1 which feeds the
account view. Balances can be read back from /accounts/:id.
Basic auth is enabled when BANK_AMBAR_USER is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.webhook(cmd)
		},
	}
}

func (a *app) webhook(cmd *cobra.Command) error {
	logger := a.logger.Named("ambar")

	view := accountview.New()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	g := e.Group("/projections")

	if a.cfg.AmbarUser != "" {
		g.Use(middleware.BasicAuth(func(username, password string, _ echo.Context) (bool, error) {
			userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AmbarUser)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AmbarPass)) == 1

			return userOK && passOK, nil
		}))
	}

	hf := echoambar.Wrap[account.Event](ambar.New[account.Event](newEncoder(), account.AggregateType), logger)

	g.POST("/accounts/v1", hf(view))

	e.GET("/accounts/:id", func(c echo.Context) error {
		s, ok := view.Get(c.Param("id"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}

		return c.JSON(http.StatusOK, s)
	})

	logger.Info("serving ambar webhook", zap.String("addr", a.cfg.AmbarAddr))

	return serveUntilDone(cmd.Context(), func() error {
		return e.Start(a.cfg.AmbarAddr)
	}, e.Shutdown)
}
