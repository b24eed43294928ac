package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emberchain/core"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keygen",
		Short:   "Create an ed25519 keypair, or print the address of an existing one",
		Example: `  emberchain keygen --out keys/validator-1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			signer, err := core.GenerateAndSaveKeypair(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signer.Address())
			return nil
		},
	}
	cmd.Flags().String("out", "keys", "Directory for the keypair")
	return cmd
}
