package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"emberchain/core/auth"
	"emberchain/core/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token signed with " + config.JWTSecretEnv,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv(config.JWTSecretEnv)
			if secret == "" {
				return errors.New(config.JWTSecretEnv + " is not set")
			}
			subject, _ := cmd.Flags().GetString("subject")
			chainID, _ := cmd.Flags().GetString("chain-id")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := auth.IssueToken([]byte(secret), subject, chainID, []string{auth.RoleOperator}, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "operator", "Token subject")
	cmd.Flags().String("chain-id", "", "Chain the token is valid for")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
