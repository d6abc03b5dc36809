// Package cmd contains the admin commands for the student register.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/register/foundation/signer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set of environment variables shared with the hardhat deployment config.
const (
	envNodeURL    = "ALCHEMY_SEPOLIA_API_URL"
	envPrivateKey = "ACCOUNT_PRIVATE_KEY"
	envExplorer   = "ETHERSCAN_API_KEY"
)

const keyExtension = ".ecdsa"

var (
	envFile          string
	nodeURL          string
	privateKey       string
	keyFile          string
	keystoreFile     string
	keystorePassword string
	timeout          time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to the deployment .env file.")
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node", "n", "", "Node url, defaults to $"+envNodeURL+".")
	rootCmd.PersistentFlags().StringVarP(&privateKey, "key", "k", "", "Hex private key, defaults to $"+envPrivateKey+".")
	rootCmd.PersistentFlags().StringVarP(&keyFile, "account", "a", "", "Path to a "+keyExtension+" private key file.")
	rootCmd.PersistentFlags().StringVar(&keystoreFile, "keystore-file", "", "Path to an encrypted keystore file.")
	rootCmd.PersistentFlags().StringVar(&keystorePassword, "password", "", "Passphrase for the keystore file, prompted when empty.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Time allowed for the command to finish.")
}

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Administer the student register contract",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {

		// A missing .env file is fine, the environment may already be set.
		_ = godotenv.Load(envFile)

		if nodeURL == "" {
			nodeURL = os.Getenv(envNodeURL)
		}
		if privateKey == "" {
			privateKey = os.Getenv(envPrivateKey)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signerConfig returns the key sources from the flags. The keystore
// passphrase is prompted for when it wasn't provided.
func signerConfig() (signer.Config, error) {
	cfg := signer.Config{
		PrivateKey:       privateKey,
		KeyFile:          keyFile,
		KeystoreFile:     keystoreFile,
		KeystorePassword: keystorePassword,
	}

	if cfg.PrivateKey == "" && cfg.KeyFile == "" && cfg.KeystoreFile != "" && cfg.KeystorePassword == "" {
		pass, err := readPassphrase("Keystore passphrase: ")
		if err != nil {
			return signer.Config{}, err
		}
		cfg.KeystorePassword = pass
	}

	return cfg, nil
}

func requireNode() error {
	if nodeURL == "" {
		return fmt.Errorf("node url required, set --node or %s", envNodeURL)
	}
	return nil
}
