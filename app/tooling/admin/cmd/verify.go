package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/register/foundation/explorer"
	"github.com/spf13/cobra"
)

var (
	verifyAddress  string
	verifySource   string
	verifyName     string
	verifyCompiler string
	verifyChainID  int64
	verifyURL      string
	verifyAPIKey   string
	verifyRuns     int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Publish the contract source on the block explorer",
	RunE:  verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyAddress, "address", "", "Address of the deployed contract.")
	verifyCmd.Flags().StringVar(&verifySource, "source", "contracts/StudentRegister.sol", "Path to the solidity source.")
	verifyCmd.Flags().StringVar(&verifyName, "name", "StudentRegister", "Name of the contract in the source.")
	verifyCmd.Flags().StringVar(&verifyCompiler, "compiler", "v0.8.28+commit.7893614a", "Full solc version string.")
	verifyCmd.Flags().Int64Var(&verifyChainID, "chain-id", 11155111, "Chain id of the deployment.")
	verifyCmd.Flags().StringVar(&verifyURL, "explorer", explorer.DefaultURL, "Explorer api url.")
	verifyCmd.Flags().StringVar(&verifyAPIKey, "api-key", "", "Explorer api key, defaults to $"+envExplorer+".")
	verifyCmd.Flags().IntVar(&verifyRuns, "runs", 0, "Optimizer runs, zero when the optimizer was off.")
}

func verifyRun(cmd *cobra.Command, args []string) error {
	if verifyAddress == "" {
		return errors.New("address required")
	}

	if verifyAPIKey == "" {
		verifyAPIKey = os.Getenv(envExplorer)
	}

	source, err := os.ReadFile(verifySource)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client := explorer.New(verifyURL, verifyAPIKey, verifyChainID)

	guid, err := client.VerifySource(ctx, explorer.VerifyRequest{
		Address:         verifyAddress,
		ContractName:    verifyName,
		Source:          string(source),
		CompilerVersion: verifyCompiler,
		Optimized:       verifyRuns > 0,
		Runs:            verifyRuns,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "submitted", guid)

	st, err := client.Wait(ctx, guid, 5*time.Second)
	if err != nil {
		return err
	}

	if !st.Verified {
		return fmt.Errorf("verification failed: %s", st.Message)
	}

	fmt.Fprintln(cmd.OutOrStdout(), st.Message)

	return nil
}
