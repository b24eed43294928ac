package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"emberchain/core/genesis"
	"emberchain/core/ledger"
	"emberchain/core/wallet"
)

func newGenesisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Create and check genesis files",
	}
	cmd.AddCommand(newGenesisValidateCmd(), newGenesisDevCmd())
	return cmd
}

func newGenesisValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a genesis file and print the resulting committee and supply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := genesis.LoadGenesisConfig(args[0])
			if err != nil {
				return err
			}
			l := ledger.New(nil, cfg.LedgerConfig())
			vs, err := genesis.Apply(cfg, l)
			if err != nil {
				return err
			}
			hash, err := cfg.Hash()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "chain:       %s\n", cfg.ChainID)
			fmt.Fprintf(w, "config hash: %s\n", hash)
			fmt.Fprintf(w, "symbol:      %s\n", cfg.Params.Symbol)
			fmt.Fprintf(w, "supply:      %d (staked %d)\n", l.TotalSupply(), l.TotalStaked())
			fmt.Fprintf(w, "validators:  %d\n", vs.Size())
			for _, v := range vs.Validators() {
				fmt.Fprintf(w, "  %s stake=%d\n", v.Address, v.Stake)
			}
			return nil
		},
	}
}

func newGenesisDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Write a development genesis whose validators are the keys in --key-dir",
		Example: `  emberchain keygen --out keys/v1 && emberchain keygen --out keys/v2
  emberchain genesis dev --key-dir keys --fund <address> --out genesis.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			keyDir, _ := flags.GetString("key-dir")
			chainID, _ := flags.GetString("chain-id")
			stake, _ := flags.GetUint64("stake")
			funded, _ := flags.GetStringSlice("fund")
			amount, _ := flags.GetUint64("amount")
			out, _ := flags.GetString("out")

			ring, err := wallet.LoadKeyring(keyDir)
			if err != nil {
				return err
			}
			if len(ring) == 0 {
				return fmt.Errorf("no keypairs found in %s", keyDir)
			}
			addrs := make([]string, len(ring))
			for i, s := range ring {
				addrs[i] = s.Address()
			}
			cfg := genesis.DevGenesis(chainID, addrs, stake, funded, amount, time.Now().Truncate(time.Second))
			raw, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			if _, err := genesis.Parse(raw); err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d validators\n", out, len(addrs))
			return nil
		},
	}
	cmd.Flags().String("key-dir", "keys", "Directory of validator keypairs")
	cmd.Flags().String("chain-id", "emberchain-dev", "Chain ID")
	cmd.Flags().Uint64("stake", 1_000_000, "Stake bonded by each validator")
	cmd.Flags().StringSlice("fund", nil, "Addresses given an initial allocation")
	cmd.Flags().Uint64("amount", 1_000_000, "Initial allocation per funded address")
	cmd.Flags().String("out", "genesis.json", "Output file")
	return cmd
}
