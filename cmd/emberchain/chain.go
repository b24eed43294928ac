package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"emberchain/core/config"
	"emberchain/core/scan"
	"emberchain/core/storage"
)

func newChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Inspect a node's block database",
	}
	cmd.AddCommand(newChainScanCmd())
	return cmd
}

func newChainScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print every stored block and check hashes and links",
		Long:  "Print every stored block and check hashes and links. Encrypted databases need the key in " + config.DEKEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data")
			dek, err := storage.ParseKey(os.Getenv(config.DEKEnv))
			if err != nil {
				return err
			}
			store, err := storage.NewStorage(dataDir, storage.Options{EncryptionKey: dek})
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := scan.ScanChain(store, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !rep.OK() {
				return errors.New("chain has problems")
			}
			return nil
		},
	}
	cmd.Flags().String("data", "data", "Block database directory")
	return cmd
}
