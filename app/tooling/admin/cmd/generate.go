package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	generateOut      string
	generateKeystore string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "private"+keyExtension, "Path of the private key file to write.")
	generateCmd.Flags().StringVar(&generateKeystore, "keystore", "", "Directory to write an encrypted keystore file to instead.")
}

func generateRun(cmd *cobra.Command, args []string) error {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	if generateKeystore != "" {
		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		ks := keystore.NewKeyStore(generateKeystore, keystore.StandardScryptN, keystore.StandardScryptP)
		acct, err := ks.ImportECDSA(pk, pass)
		if err != nil {
			return fmt.Errorf("storing key: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), acct.Address.Hex())
		fmt.Fprintln(cmd.OutOrStdout(), acct.URL.Path)
		return nil
	}

	path := generateOut
	if !strings.HasSuffix(path, keyExtension) {
		path += keyExtension
	}

	if err := crypto.SaveECDSA(filepath.Clean(path), pk); err != nil {
		return fmt.Errorf("saving key: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(pk.PublicKey).Hex())
	fmt.Fprintln(cmd.OutOrStdout(), path)

	return nil
}
