package main

import (
	"sync/atomic"

	"github.com/aneshas/bankaccount/account"
	"github.com/aneshas/bankaccount/accountview"
	"github.com/aneshas/bankaccount/eventstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newProjectCommand(a *app) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project stored events into the account view",
		Long: `Subscribe to every stored event and project it into the account view.

Progress (accounts in the view, last projected sequence) is reported every
BANK_REPORT_EVERY. The projector keeps polling for new events until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.project(cmd, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "number of events fetched per poll")

	return cmd
}

func (a *app) project(cmd *cobra.Command, batchSize int) error {
	es, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	logger := a.logger.Named("projector")

	view := accountview.New()
	feed := view.Projection(account.AggregateType)

	var last atomic.Uint64

	p := eventstore.NewProjector(
		es,
		eventstore.WithProjectorLogger(logger),
		eventstore.WithSubscribeOpts(
			eventstore.WithBatchSize(batchSize),
			eventstore.WithPollInterval(a.cfg.PollInterval),
		),
	)

	p.Add(eventstore.FlushAfter(
		ctx,
		func(data eventstore.StoredEvent) error {
			if err := feed(data); err != nil {
				return err
			}

			last.Store(data.Sequence)

			logger.Debug(
				"event projected",
				zap.String("stream_id", data.StreamID),
				zap.Int("version", data.StreamVersion),
				zap.Uint64("sequence", data.Sequence),
			)

			return nil
		},
		func() error {
			logger.Info(
				"account view progress",
				zap.Int("accounts", view.Len()),
				zap.Uint64("sequence", last.Load()),
			)

			return nil
		},
		a.cfg.ReportEvery,
	))

	logger.Info("projecting", zap.Duration("poll_interval", a.cfg.PollInterval))

	return p.Run(ctx)
}
