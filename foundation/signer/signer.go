// Package signer provides the wallet side of talking to the chain. It loads
// the private key the service signs with and binds it to the connected
// chain so contract transactions can be produced.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoWallet is returned when no key source has been configured.
var ErrNoWallet = errors.New("no wallet configured")

// Config describes where the signing key comes from. The first non-empty
// source wins in the order PrivateKey, KeyFile, KeystoreFile.
type Config struct {
	PrivateKey       string
	KeyFile          string
	KeystoreFile     string
	KeystorePassword string
}

// Load reads the private key from the configured source.
func Load(cfg Config) (*ecdsa.PrivateKey, error) {
	switch {
	case cfg.PrivateKey != "":
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		return pk, nil

	case cfg.KeyFile != "":
		pk, err := crypto.LoadECDSA(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading key file: %w", err)
		}
		return pk, nil

	case cfg.KeystoreFile != "":
		data, err := os.ReadFile(cfg.KeystoreFile)
		if err != nil {
			return nil, fmt.Errorf("reading keystore: %w", err)
		}

		key, err := keystore.DecryptKey(data, cfg.KeystorePassword)
		if err != nil {
			return nil, fmt.Errorf("decrypting keystore: %w", err)
		}
		return key.PrivateKey, nil
	}

	return nil, ErrNoWallet
}

// =============================================================================

// ChainReader is the behavior required to learn which chain the node
// serves. The ethclient.Client implements this.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Signer binds a private key to a specific chain.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// Connect asks the node for its chain id and binds the key to it. This is
// the step a browser wallet performs when an application requests access
// to its accounts.
func Connect(ctx context.Context, chain ChainReader, privateKey *ecdsa.PrivateKey) (*Signer, error) {
	if privateKey == nil {
		return nil, ErrNoWallet
	}

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading chain id: %w", err)
	}

	s := Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
	}

	return &s, nil
}

// Address returns the account address of the signer.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain id the signer is bound to.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// TransactOpts returns a fresh set of transaction options for the signer.
// Gas price, gas limit, and nonce are left for the binding to fill in from
// the node.
func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("constructing transactor: %w", err)
	}
	opts.Context = ctx

	return opts, nil
}
