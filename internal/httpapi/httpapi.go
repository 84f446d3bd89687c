// Package httpapi exposes the bank account over http
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/accountview"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Executor executes account commands
type Executor interface {
	Execute(ctx context.Context, id string, cmd account.Command) (*account.BankAccount, error)
}

// Reader reads the account read model
type Reader interface {
	Get(id string) (accountview.Summary, bool)
}

// New constructs the http handler
func New(exec Executor, view Reader, logger *zap.Logger) *Handler {
	return &Handler{
		exec:   exec,
		view:   view,
		logger: logger,
	}
}

// Handler serves account commands and queries
type Handler struct {
	exec   Executor
	view   Reader
	logger *zap.Logger
}

// Register registers account routes with e
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/accounts", h.open)
	e.POST("/accounts/:id/commands", h.execute)
	e.GET("/accounts/:id", h.get)
}

// AccountResp is returned after a command has been executed
type AccountResp struct {
	AggregateID string `json:"aggregate_id"`
	Opened      bool   `json:"opened"`
	Balance     string `json:"balance"`
}

// ErrorResp is returned when a command fails
type ErrorResp struct {
	Error string `json:"error"`
}

func (h *Handler) open(c echo.Context) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	return h.respond(c, id.String(), account.OpenAccount{AccountID: id.String()})
}

func (h *Handler) execute(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	cmd, err := account.DecodeCommand(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResp{Error: err.Error()})
	}

	id := c.Param("id")

	if open, ok := cmd.(account.OpenAccount); ok {
		if open.AccountID != "" && open.AccountID != id {
			return c.JSON(http.StatusBadRequest, ErrorResp{
				Error: fmt.Sprintf("account id %q does not match %q", open.AccountID, id),
			})
		}

		cmd = account.OpenAccount{AccountID: id}
	}

	return h.respond(c, id, cmd)
}

func (h *Handler) respond(c echo.Context, id string, cmd account.Command) error {
	acc, err := h.exec.Execute(c.Request().Context(), id, cmd)
	if err != nil {
		return c.JSON(h.status(id, err), ErrorResp{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, AccountResp{
		AggregateID: id,
		Opened:      acc.Opened,
		Balance:     acc.Balance.String(),
	})
}

func (h *Handler) status(id string, err error) int {
	var (
		domainErr account.Error
		atmErr    *account.AtmError
		checkErr  *account.CheckError
	)

	switch {
	case errors.As(err, &domainErr), errors.As(err, &atmErr), errors.As(err, &checkErr):
		return http.StatusUnprocessableEntity

	case errors.Is(err, account.ErrUnknownCommand):
		return http.StatusBadRequest

	case errors.Is(err, eventstore.ErrConcurrencyCheckFailed):
		return http.StatusConflict

	default:
		h.logger.Error("command failed", zap.String("aggregate_id", id), zap.Error(err))

		return http.StatusInternalServerError
	}
}

func (h *Handler) get(c echo.Context) error {
	s, ok := h.view.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResp{Error: "account not found"})
	}

	return c.JSON(http.StatusOK, s)
}
