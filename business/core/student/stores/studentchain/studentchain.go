// Package studentchain contains student related ledger access against the
// student register contract.
package studentchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/foundation/contract"
	"github.com/ardanlabs/register/foundation/signer"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Backend is the behavior required from the node connection. The
// ethclient.Client implements this.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	signer.ChainReader
}

// Store manages the set of APIs for student ledger access.
type Store struct {
	log      *zap.SugaredLogger
	backend  Backend
	signer   *signer.Signer
	registry *contract.Registry
}

// NewStore constructs the api for ledger access.
func NewStore(log *zap.SugaredLogger, backend Backend, sgn *signer.Signer, address common.Address) (*Store, error) {
	registry, err := contract.New(address, backend)
	if err != nil {
		return nil, err
	}

	s := Store{
		log:      log,
		backend:  backend,
		signer:   sgn,
		registry: registry,
	}

	return &s, nil
}

// Connector returns a student.Connector that requests access to the wallet
// with the key and binds the contract at the address.
func Connector(log *zap.SugaredLogger, backend Backend, privateKey *ecdsa.PrivateKey, address common.Address) student.Connector {
	return func(ctx context.Context) (student.Ledger, error) {
		sgn, err := signer.Connect(ctx, backend, privateKey)
		if err != nil {
			return nil, err
		}

		return NewStore(log, backend, sgn, address)
	}
}

// Account returns the signing account.
func (s *Store) Account() string {
	return s.signer.Address().Hex()
}

// Contract returns the contract address.
func (s *Store) Contract() string {
	return s.registry.Address().Hex()
}

// TotalStudents returns the number of registered students.
func (s *Store) TotalStudents(ctx context.Context) (uint64, error) {
	total, err := s.registry.TotalStudents(ctx)
	if err != nil {
		return 0, err
	}

	return toUint64(total)
}

// AllStudents returns every registered student.
func (s *Store) AllStudents(ctx context.Context) ([]student.Student, error) {
	recs, err := s.registry.AllStudents(ctx)
	if err != nil {
		return nil, err
	}

	students := make([]student.Student, len(recs))
	for i, rec := range recs {
		stu, err := toStudent(rec)
		if err != nil {
			return nil, err
		}
		students[i] = stu
	}

	return students, nil
}

// StudentByID returns the student with the specified id.
func (s *Store) StudentByID(ctx context.Context, id uint64) (student.Student, error) {
	rec, err := s.registry.StudentByID(ctx, new(big.Int).SetUint64(id))
	if err != nil {
		return student.Student{}, err
	}

	return toStudent(rec)
}

// RegisterStudent submits the registration and waits for it to be mined.
func (s *Store) RegisterStudent(ctx context.Context, name string) error {
	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return err
	}

	tx, err := s.registry.RegisterStudent(opts, name)
	if err != nil {
		return err
	}

	return s.wait(ctx, "register", tx)
}

// RemoveStudent submits the removal and waits for it to be mined.
func (s *Store) RemoveStudent(ctx context.Context, id uint64) error {
	opts, err := s.signer.TransactOpts(ctx)
	if err != nil {
		return err
	}

	tx, err := s.registry.RemoveStudent(opts, new(big.Int).SetUint64(id))
	if err != nil {
		return err
	}

	return s.wait(ctx, "remove", tx)
}

// =============================================================================

func (s *Store) wait(ctx context.Context, op string, tx *types.Transaction) error {
	s.log.Infow(op, "status", "waiting for confirmation", "tx", tx.Hash().Hex(), "nonce", tx.Nonce())

	receipt, err := contract.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return err
	}

	s.log.Infow(op, "status", "confirmed", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber, "gas", receipt.GasUsed)

	return nil
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %s does not fit in 64 bits", v)
	}
	return v.Uint64(), nil
}

func toStudent(rec contract.Record) (student.Student, error) {
	id, err := toUint64(rec.ID)
	if err != nil {
		return student.Student{}, fmt.Errorf("student id: %w", err)
	}

	s := student.Student{
		ID:   id,
		Name: rec.Name,
	}

	return s, nil
}
