package main

import (
	"github.com/spf13/cobra"
)

const (
	nodeURLKey = "node"
	outputKey  = "output"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "emberchain",
		Short:         "Emberchain node and tooling",
		Long:          "Run an Emberchain validator node, manage keys and genesis files, and query a running node.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newNodeCmd(),
		newKeygenCmd(),
		newTxCmd(),
		newGenesisCmd(),
		newChainCmd(),
		newTokenCmd(),
		newStatusCmd(),
		newBalanceCmd(),
		newMempoolCmd(),
	)
	return root
}
