// Package contract provides a typed binding to the student register smart
// contract. The binding follows the shape of an abigen generated wrapper
// but is written by hand over the embedded ABI so the package has no
// generated code.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed studentregister.abi.json
var abiJSON string

// Set of contract method names.
const (
	MethodTotalStudents = "getTotalStudents"
	MethodAllStudents   = "getAllStudents"
	MethodStudentByID   = "getStudentById"
	MethodRegister      = "registerStudent"
	MethodRemove        = "removeStudent"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Record represents a student as it is stored by the contract.
type Record struct {
	ID   *big.Int
	Name string
}

// record matches the field names the abi package generates for the
// Student tuple so results can be converted with abi.ConvertType.
type record struct {
	Id   *big.Int
	Name string
}

// ABI returns the parsed contract interface description.
func ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// =============================================================================

// Registry is a handle to a deployed student register contract.
type Registry struct {
	address  common.Address
	contract *bind.BoundContract
}

// New binds to the student register contract at the specified address.
func New(address common.Address, backend bind.ContractBackend) (*Registry, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parsing abi: %w", err)
	}

	r := Registry{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}

	return &r, nil
}

// Address returns the address of the bound contract.
func (r *Registry) Address() common.Address {
	return r.address
}

// TotalStudents returns the number of students currently registered.
func (r *Registry) TotalStudents(ctx context.Context) (*big.Int, error) {
	var out []any
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodTotalStudents); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodTotalStudents, err)
	}

	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return total, nil
}

// AllStudents returns every student currently registered in the order the
// contract stores them.
func (r *Registry) AllStudents(ctx context.Context) ([]Record, error) {
	var out []any
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodAllStudents); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodAllStudents, err)
	}

	recs := *abi.ConvertType(out[0], new([]record)).(*[]record)

	students := make([]Record, len(recs))
	for i, rec := range recs {
		students[i] = Record{
			ID:   rec.Id,
			Name: rec.Name,
		}
	}

	return students, nil
}

// StudentByID returns the student for the specified id. The contract
// reverts when the id does not exist.
func (r *Registry) StudentByID(ctx context.Context, id *big.Int) (Record, error) {
	var out []any
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodStudentByID, id); err != nil {
		return Record{}, fmt.Errorf("%s[%s]: %w", MethodStudentByID, id, err)
	}

	rec := Record{
		ID:   *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Name: *abi.ConvertType(out[1], new(string)).(*string),
	}

	return rec, nil
}

// RegisterStudent submits a transaction registering a student with the
// specified name. The contract assigns the id.
func (r *Registry) RegisterStudent(opts *bind.TransactOpts, name string) (*types.Transaction, error) {
	tx, err := r.contract.Transact(opts, MethodRegister, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodRegister, err)
	}

	return tx, nil
}

// RemoveStudent submits a transaction removing the student with the
// specified id.
func (r *Registry) RemoveStudent(opts *bind.TransactOpts, id *big.Int) (*types.Transaction, error) {
	tx, err := r.contract.Transact(opts, MethodRemove, id)
	if err != nil {
		return nil, fmt.Errorf("%s[%s]: %w", MethodRemove, id, err)
	}

	return tx, nil
}

// =============================================================================

// WaitMined blocks until the transaction is mined and checks the receipt
// status. A failed status returns ErrReverted along with the receipt.
func WaitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for tx[%s]: %w", tx.Hash(), err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("tx[%s]: %w", tx.Hash(), ErrReverted)
	}

	return receipt, nil
}
