package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cfgd/internal/coordinator"
	"cfgd/internal/logging"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "cfgd",
		Short:         "Apply the saved startup configuration after hardware init",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoordinator(cmd.Context(), ctx)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVarP(&ctx.databaseFlag, "database", "d", "", "Running configuration database endpoint")
	flags.StringVar(&ctx.configDBFlag, "config-db", "", "Configuration store endpoint")
	flags.StringVar(&ctx.socketFlag, "socket", "", "Path to the cfgd control socket")
	flags.StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newExitCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}

func runCoordinator(parent context.Context, cmdCtx *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return usageError{fmt.Errorf("load config: %w", err)}
	}

	runID := uuid.NewString()
	logger, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return usageError{fmt.Errorf("init logger: %w", err)}
	}

	coord, err := coordinator.New(cfg, logger, runID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("cfgd starting",
		logging.String("config_db", cfg.Databases.ConfigDB),
		logging.String("running_db", cfg.Databases.RunningDB),
		logging.String("socket", cfg.Daemon.SocketPath))
	err = coord.Run(ctx)
	logger.Info("cfgd exiting", logging.Int("exit_status", coordinator.ExitCode(err)))
	return err
}
