// Package echoambar serves ambar deliveries over echo
package echoambar

import (
	"context"
	"io"
	"net/http"

	"github.com/aneshas/bankaccount/aggregate"
	"github.com/aneshas/bankaccount/ambar"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Projector projects a delivery body to a query, *ambar.Ambar is one
type Projector[E any] interface {
	Project(ctx context.Context, q aggregate.Query[E], body []byte) error
}

// Wrap adapts p to an echo.HandlerFunc per query.
// The response is always 200, the outcome is carried in the body.
func Wrap[E any](p Projector[E], logger *zap.Logger) func(q aggregate.Query[E]) echo.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(q aggregate.Query[E]) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				return err
			}

			err = p.Project(r.Context(), q, body)

			resp := ambar.Outcome(err)

			if err != nil {
				fields := []zap.Field{zap.Error(err)}

				if resp.Acknowledged() {
					logger.Warn("ambar delivery dropped", fields...)
				} else {
					logger.Error("ambar delivery failed", append(fields, zap.String("policy", resp.Result.Error.Policy))...)
				}
			}

			return c.JSON(http.StatusOK, resp)
		}
	}
}
