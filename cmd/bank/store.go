package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/aggregate"
	"github.com/aneshas/bankaccount/eventstore"
	"go.uber.org/zap"
)

// eventStore is the event store surface the commands use
type eventStore interface {
	aggregate.EventStore
	aggregate.AllReader
	eventstore.EventStreamer
}

func newEncoder() *eventstore.JSONEncoder {
	return eventstore.NewJSONEncoder(account.Events()...)
}

// openStore opens the configured event store. The returned func releases it.
func (a *app) openStore() (eventStore, func(), error) {
	if a.cfg.Memory {
		a.logger.Info("using in-memory event store")

		return eventstore.NewMemoryStore(newEncoder()), func() {}, nil
	}

	var opt eventstore.Option

	if a.cfg.PostgresDSN != "" {
		a.logger.Info("using postgres event store")

		opt = eventstore.WithPostgresDB(a.cfg.PostgresDSN)
	} else {
		a.logger.Info("using sqlite event store", zap.String("path", a.cfg.SQLitePath))

		opt = eventstore.WithSQLiteDB(a.cfg.SQLitePath)
	}

	es, err := eventstore.New(newEncoder(), opt)
	if err != nil {
		return nil, nil, err
	}

	return es, func() {
		if err := es.Close(); err != nil {
			a.logger.Error("closing event store", zap.Error(err))
		}
	}, nil
}

type bank = aggregate.Framework[*account.BankAccount, account.Command, account.Event, account.Services]

func (a *app) newBank(es aggregate.EventStore) *bank {
	store := aggregate.NewStore[*account.BankAccount, account.Event](
		es,
		account.AggregateType,
		func() *account.BankAccount { return &account.BankAccount{} },
	)

	return aggregate.New[*account.BankAccount, account.Command, account.Event, account.Services](
		store,
		account.NoopServices{},
		aggregate.WithLogger(a.logger.Named("aggregate")),
	)
}

const shutdownTimeout = 10 * time.Second

// serveUntilDone runs start and shuts down once ctx is done
func serveUntilDone(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	errc := make(chan error, 1)

	go func() {
		errc <- start()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return shutdown(sctx)
	}
}
