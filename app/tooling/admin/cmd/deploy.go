package cmd

import (
	"context"
	"fmt"

	"github.com/ardanlabs/register/foundation/contract"
	"github.com/ardanlabs/register/foundation/signer"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
)

var deployArtifact string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the student register contract",
	RunE:  deployRun,
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVar(&deployArtifact, "artifact", "artifacts/contracts/StudentRegister.sol/StudentRegister.json", "Hardhat artifact or hex bytecode file.")
}

func deployRun(cmd *cobra.Command, args []string) error {
	if err := requireNode(); err != nil {
		return err
	}

	bytecode, err := contract.LoadBytecode(deployArtifact)
	if err != nil {
		return err
	}

	cfg, err := signerConfig()
	if err != nil {
		return err
	}

	pk, err := signer.Load(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, nodeURL)
	if err != nil {
		return fmt.Errorf("connecting to node: %w", err)
	}
	defer client.Close()

	sgn, err := signer.Connect(ctx, client, pk)
	if err != nil {
		return err
	}

	opts, err := sgn.TransactOpts(ctx)
	if err != nil {
		return err
	}

	address, tx, err := contract.Deploy(opts, client, bytecode)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "deploying from", sgn.Address().Hex(), "tx", tx.Hash().Hex())

	receipt, err := contract.WaitMined(ctx, client, tx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "mined in block", receipt.BlockNumber)
	fmt.Fprintln(cmd.OutOrStdout(), address.Hex())

	return nil
}
