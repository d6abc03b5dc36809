package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// artifact is the subset of a hardhat compilation artifact we need.
type artifact struct {
	ContractName string `json:"contractName"`
	Bytecode     string `json:"bytecode"`
}

// LoadBytecode reads the contract creation code from a file. The file can
// be a hardhat artifact (artifacts/contracts/<name>.sol/<name>.json) or a
// plain hex encoded .bin file as produced by solc.
func LoadBytecode(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	return ParseBytecode(data)
}

// ParseBytecode extracts the creation code from either a hardhat artifact
// document or a hex string.
func ParseBytecode(data []byte) ([]byte, error) {
	src := strings.TrimSpace(string(data))

	if strings.HasPrefix(src, "{") {
		var art artifact
		if err := json.Unmarshal(data, &art); err != nil {
			return nil, fmt.Errorf("decoding artifact: %w", err)
		}
		src = art.Bytecode
	}

	if !strings.HasPrefix(src, "0x") {
		src = "0x" + src
	}

	code, err := hexutil.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode: %w", err)
	}

	if len(code) == 0 {
		return nil, errors.New("artifact has no bytecode")
	}

	return code, nil
}

// Deploy submits the contract creation transaction and returns the address
// the contract will live at once the transaction is mined.
func Deploy(opts *bind.TransactOpts, backend bind.ContractBackend, bytecode []byte) (common.Address, *types.Transaction, error) {
	parsed, err := ABI()
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("parsing abi: %w", err)
	}

	address, tx, _, err := bind.DeployContract(opts, parsed, bytecode, backend)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("deploying contract: %w", err)
	}

	return address, tx, nil
}
