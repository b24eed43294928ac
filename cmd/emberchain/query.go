package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"emberchain/api/client"
)

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String(nodeURLKey, client.DefaultURL, "Node API URL")
	cmd.Flags().StringP(outputKey, "o", "plain", "Output format: plain|json")
}

func queryClient(cmd *cobra.Command) (*client.Client, bool) {
	url, _ := cmd.Flags().GetString(nodeURLKey)
	output, _ := cmd.Flags().GetString(outputKey)
	return client.New(url, ""), output == "json"
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query node status and health",
		Example: `  emberchain status
  emberchain status --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, asJSON := queryClient(cmd)
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chain: %s\nStatus: %s\nHeight: %d\nTip: %s\nSupply: %d %s\n",
				st.ChainID, st.Status, st.Height, st.TipHash, st.Supply.Total, st.Symbol)
			return nil
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance ADDRESS",
		Short: "Query an account's balance and stake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, asJSON := queryClient(cmd)
			acct, err := c.Account(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), acct)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %d\nStake: %d\nDelegated to it: %d\n", acct.Balance, acct.Stake, acct.Delegated)
			return nil
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func newMempoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mempool",
		Short: "Query the current mempool contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, asJSON := queryClient(cmd)
			txs, err := c.Mempool(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), txs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions in mempool:\n", len(txs))
			for i, tx := range txs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s %s -> %s amount=%d fee=%d\n", i+1, tx.ID, tx.Sender, tx.Recipient, tx.Amount, tx.Fee)
			}
			return nil
		},
	}
	addQueryFlags(cmd)
	return cmd
}
