package main

import (
	"fmt"

	"github.com/aneshas/bankaccount/internal/config"
	"github.com/aneshas/bankaccount/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs, it is populated before RunE
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var (
		memory  bool
		logMode string
	)

	cmd := &cobra.Command{
		Use:           "bank",
		Short:         "Event sourced bank account service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("memory") {
				cfg.Memory = memory
			}

			if cmd.Flags().Changed("log-mode") {
				cfg.LogMode = logMode
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			l, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			a.cfg = cfg
			a.logger = l

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&memory, "memory", false, "keep events in memory (overrides "+config.Prefix+"MEMORY)")
	cmd.PersistentFlags().StringVar(&logMode, "log-mode", "development", "development or production (overrides "+config.Prefix+"LOG_MODE)")

	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newProjectCommand(a))
	cmd.AddCommand(newAmbarCommand(a))

	return cmd
}
