package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"emberchain/api/client"
	"emberchain/core/block"
	"emberchain/core/wallet"
)

func newTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Build and submit transactions",
	}
	cmd.AddCommand(newTxSignCmd())
	return cmd
}

func newTxSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a transfer and print it, or submit it with --submit",
		Example: `  emberchain tx sign --key keys/alice/node_ed25519.priv --to <address> --amount 100 --fee 1
  EMBER_SIGNER_PRIVKEY=<hex> emberchain tx sign --to <address> --amount 5 --fee 1 --submit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			keyPath, _ := flags.GetString("key")
			to, _ := flags.GetString("to")
			amount, _ := flags.GetUint64("amount")
			fee, _ := flags.GetUint64("fee")
			submit, _ := flags.GetBool("submit")
			nodeURL, _ := flags.GetString(nodeURLKey)
			if to == "" {
				return errors.New("--to is required")
			}

			signer, err := wallet.ChainLoader{
				&wallet.FileWalletLoader{Path: keyPath},
				&wallet.EnvWalletLoader{},
			}.LoadWallet()
			if err != nil {
				return err
			}
			tx := block.NewTransaction(signer.Address(), to, amount, fee, time.Now())
			if err := tx.ValidateBasic(); err != nil {
				return err
			}
			if err := tx.Sign(signer); err != nil {
				return err
			}

			if submit {
				id, err := client.New(nodeURL, "").SubmitTransaction(cmd.Context(), tx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			out, err := json.MarshalIndent(tx, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().String("key", "", "Private key file (falls back to "+wallet.DefaultSignerEnv+")")
	cmd.Flags().String("to", "", "Recipient address")
	cmd.Flags().Uint64("amount", 0, "Amount to transfer")
	cmd.Flags().Uint64("fee", 1, "Fee offered")
	cmd.Flags().Bool("submit", false, "Submit to the node instead of printing")
	cmd.Flags().String(nodeURLKey, client.DefaultURL, "Node API URL")
	return cmd
}
