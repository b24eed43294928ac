package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emberchain/core/config"
	"emberchain/core/logging"
	"emberchain/core/node"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a validator node",
		Example: `  emberchain node --genesis genesis.json --key-dir keys
  EMBER_JWT_SECRET=s3cret emberchain node --api-addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env")
			cfg, err := config.Load(envFile, cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			n, err := node.New(cfg, log)
			if err != nil {
				return err
			}
			defer n.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := n.Run(ctx); err != nil {
				log.Error("node stopped", zap.Error(err))
				return err
			}
			log.Info("node stopped")
			return nil
		},
	}
	cmd.Flags().String("env", ".env", "Environment file read before the process environment")
	config.AddFlags(cmd.Flags())
	return cmd
}
