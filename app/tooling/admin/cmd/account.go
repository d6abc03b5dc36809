package cmd

import (
	"fmt"

	"github.com/ardanlabs/register/foundation/signer"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the account for the configured key",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	cfg, err := signerConfig()
	if err != nil {
		return err
	}

	pk, err := signer.Load(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(pk.PublicKey).Hex())

	return nil
}
