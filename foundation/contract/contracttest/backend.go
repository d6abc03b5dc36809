// Package contracttest provides an in-memory chain backend that executes
// the student register contract so the binding and the code built on it
// can be tested without a node.
package contracttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ardanlabs/register/foundation/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is the revert reason used when an id does not exist.
var ErrNotFound = errors.New("execution reverted: student not found")

// student matches the tuple layout so it can be packed by the abi package.
type student struct {
	Id   *big.Int
	Name string
}

// Backend implements bind.ContractBackend and bind.DeployBackend over an
// in-memory copy of the contract state. Methods the binding never calls
// are left to the embedded interface and will panic if used.
type Backend struct {
	bind.ContractBackend

	abi     abi.ABI
	chainID *big.Int

	mu       sync.Mutex
	nextID   int64
	students []student
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	block    int64
	fail     error
	calls    map[string]int
}

// New constructs a backend for the specified chain id.
func New(chainID int64) (*Backend, error) {
	parsed, err := contract.ABI()
	if err != nil {
		return nil, err
	}

	b := Backend{
		abi:      parsed,
		chainID:  big.NewInt(chainID),
		nextID:   1,
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[string]int),
	}

	return &b, nil
}

// Seed registers the specified names directly into the contract state.
func (b *Backend) Seed(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range names {
		b.register(name)
	}
}

// Fail makes every subsequent chain call return the specified error. Pass
// nil to restore normal behavior.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fail = err
}

// Calls returns the number of times the contract method was invoked,
// through either a call or a transaction.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.calls[method]
}

// =============================================================================

// ChainID returns the configured chain id.
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail != nil {
		return nil, b.fail
	}

	return new(big.Int).Set(b.chainID), nil
}

// CodeAt reports the contract as deployed at every address.
func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

// PendingCodeAt reports the contract as deployed at every address.
func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

// PendingNonceAt returns the next nonce for the account.
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.nonces[account], nil
}

// HeaderByNumber returns a pre-London header so legacy transactions are used.
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &types.Header{Number: big.NewInt(b.block)}, nil
}

// SuggestGasPrice returns a fixed gas price.
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap returns a fixed tip.
func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

// EstimateGas runs the contract method against a copy of the state so
// calls that would revert fail here, as they would on a node.
func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail != nil {
		return 0, b.fail
	}

	if call.To == nil {
		return 1_000_000, nil
	}

	method, args, err := b.decode(call.Data)
	if err != nil {
		return 0, err
	}

	if method.Name == contract.MethodRemove {
		if _, idx := b.find(args[0].(*big.Int)); idx < 0 {
			return 0, ErrNotFound
		}
	}

	return 100_000, nil
}

// SendTransaction executes the transaction and stores a receipt.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail != nil {
		return b.fail
	}

	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("recovering sender: %w", err)
	}

	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: got %d, exp %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.block++

	receipt := types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(b.block),
	}

	switch tx.To() {
	case nil:
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())

	default:
		if err := b.execute(tx.Data()); err != nil {
			receipt.Status = types.ReceiptStatusFailed
		}
	}

	b.receipts[tx.Hash()] = &receipt
	return nil
}

// TransactionReceipt returns the receipt of a sent transaction.
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	receipt, exists := b.receipts[txHash]
	if !exists {
		return nil, ethereum.NotFound
	}

	return receipt, nil
}

// CallContract executes the read only contract methods.
func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail != nil {
		return nil, b.fail
	}

	method, args, err := b.decode(call.Data)
	if err != nil {
		return nil, err
	}
	b.calls[method.Name]++

	switch method.Name {
	case contract.MethodTotalStudents:
		return method.Outputs.Pack(big.NewInt(int64(len(b.students))))

	case contract.MethodAllStudents:
		students := make([]student, len(b.students))
		copy(students, b.students)
		return method.Outputs.Pack(students)

	case contract.MethodStudentByID:
		s, idx := b.find(args[0].(*big.Int))
		if idx < 0 {
			return nil, ErrNotFound
		}
		return method.Outputs.Pack(s.Id, s.Name)
	}

	return nil, fmt.Errorf("method %q is not a view", method.Name)
}

// FilterLogs returns no logs since the contract emits none.
func (b *Backend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// =============================================================================

func (b *Backend) decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("missing method selector")
	}

	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("unpacking %s inputs: %w", method.Name, err)
	}

	return method, args, nil
}

func (b *Backend) execute(data []byte) error {
	method, args, err := b.decode(data)
	if err != nil {
		return err
	}
	b.calls[method.Name]++

	switch method.Name {
	case contract.MethodRegister:
		b.register(args[0].(string))
		return nil

	case contract.MethodRemove:
		_, idx := b.find(args[0].(*big.Int))
		if idx < 0 {
			return ErrNotFound
		}
		b.students = append(b.students[:idx], b.students[idx+1:]...)
		return nil
	}

	return fmt.Errorf("method %q is not a transaction", method.Name)
}

func (b *Backend) register(name string) {
	b.students = append(b.students, student{Id: big.NewInt(b.nextID), Name: name})
	b.nextID++
}

func (b *Backend) find(id *big.Int) (student, int) {
	for i, s := range b.students {
		if s.Id.Cmp(id) == 0 {
			return s, i
		}
	}
	return student{}, -1
}
