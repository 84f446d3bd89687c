package accountview

import (
	"context"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/aggregate"
	"go.uber.org/zap"
)

// NewLoggingQuery constructs a query that logs every committed event
func NewLoggingQuery(l *zap.Logger) *LoggingQuery {
	return &LoggingQuery{logger: l}
}

// LoggingQuery logs committed events
type LoggingQuery struct {
	logger *zap.Logger
}

// Dispatch implements aggregate.Query
func (q *LoggingQuery) Dispatch(_ context.Context, aggregateID string, events []aggregate.EventEnvelope[account.Event]) error {
	for _, env := range events {
		q.logger.Info(
			"event committed",
			zap.String("aggregate_id", aggregateID),
			zap.Int("sequence", env.Sequence),
			zap.String("event_id", env.EventID),
			zap.String("type", env.Payload.EventType()),
			zap.Any("payload", env.Payload),
		)
	}

	return nil
}
