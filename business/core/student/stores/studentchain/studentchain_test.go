package studentchain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/business/core/student/stores/studentchain"
	"github.com/ardanlabs/register/foundation/contract"
	"github.com/ardanlabs/register/foundation/contract/contracttest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	address  = "0x0976E205B6D0F3E6DDA97bE011ce2D4457cdAc39"
)

func Test_Core(t *testing.T) {
	backend, err := contracttest.New(11155111)
	if err != nil {
		t.Fatalf("Should be able to construct the backend: %s", err)
	}
	backend.Seed("Bob")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %s", err)
	}

	log := zap.NewNop().Sugar()
	connect := studentchain.Connector(log, backend, pk, common.HexToAddress(address))
	core := student.NewCore(log, connect, nil)

	ctx := context.Background()
	if err := core.Initialize(ctx); err != nil {
		t.Fatalf("Should be able to initialize over the chain: %s", err)
	}

	state := core.Snapshot()
	if state.Account != "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4" {
		t.Fatalf("Should display the signing account, got %s.", state.Account)
	}
	if state.Contract != address {
		t.Fatalf("Should display the contract address, got %s.", state.Contract)
	}

	if err := core.Register(ctx, "Alice"); err != nil {
		t.Fatalf("Should be able to register over the chain: %s", err)
	}
	if backend.Calls(contract.MethodRegister) != 1 {
		t.Fatalf("Should send one registration transaction.")
	}

	state = core.Snapshot()
	if state.Total != 2 || state.Students[1].Name != "Alice" || state.Students[1].ID != 2 {
		t.Logf("got: %+v", state.Students)
		t.Fatalf("Should see Alice with the chain assigned id.")
	}

	found, err := core.Search(ctx, "2")
	if err != nil || found.Name != "Alice" {
		t.Fatalf("Should find Alice by id: %v", err)
	}

	if err := core.Remove(ctx, "1"); err != nil {
		t.Fatalf("Should be able to remove over the chain: %s", err)
	}

	state = core.Snapshot()
	if state.Total != 1 || len(state.Students) != 1 || state.Students[0].Name != "Alice" {
		t.Logf("got: %+v", state.Students)
		t.Fatalf("Should only have Alice left.")
	}

	if err := core.Remove(ctx, "1"); !student.IsCallError(err) {
		t.Fatalf("Should fail to remove an id twice, got %v.", err)
	}
}

func Test_ConnectFailure(t *testing.T) {
	backend, err := contracttest.New(11155111)
	if err != nil {
		t.Fatalf("Should be able to construct the backend: %s", err)
	}
	backend.Fail(errors.New("dial tcp: connection refused"))

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %s", err)
	}

	log := zap.NewNop().Sugar()
	core := student.NewCore(log, studentchain.Connector(log, backend, pk, common.HexToAddress(address)), nil)

	if err := core.Initialize(context.Background()); !student.IsConnectionError(err) {
		t.Fatalf("Should get back a connection error, got %v.", err)
	}
	if core.Snapshot().Phase != student.PhaseError {
		t.Fatalf("Should end in the error phase.")
	}
}
