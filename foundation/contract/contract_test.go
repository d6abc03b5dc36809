package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ardanlabs/register/foundation/contract"
	"github.com/ardanlabs/register/foundation/contract/contracttest"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	chainID  = 1337
	address  = "0x0976E205B6D0F3E6DDA97bE011ce2D4457cdAc39"
)

// =============================================================================

func Test_Reads(t *testing.T) {
	backend, err := contracttest.New(chainID)
	if err != nil {
		t.Fatalf("Should be able to construct the backend: %s", err)
	}
	backend.Seed("Alice", "Bob")

	reg, err := contract.New(common.HexToAddress(address), backend)
	if err != nil {
		t.Fatalf("Should be able to bind the contract: %s", err)
	}

	ctx := context.Background()

	total, err := reg.TotalStudents(ctx)
	if err != nil {
		t.Fatalf("Should be able to read the total: %s", err)
	}
	if total.Int64() != 2 {
		t.Logf("got: %d", total)
		t.Logf("exp: %d", 2)
		t.Fatalf("Should get back the right total.")
	}

	students, err := reg.AllStudents(ctx)
	if err != nil {
		t.Fatalf("Should be able to read all students: %s", err)
	}
	if len(students) != 2 {
		t.Fatalf("Should get back 2 students, got %d.", len(students))
	}
	if students[0].ID.Int64() != 1 || students[0].Name != "Alice" {
		t.Logf("got: %d %s", students[0].ID, students[0].Name)
		t.Logf("exp: %d %s", 1, "Alice")
		t.Fatalf("Should get back the first student.")
	}
	if students[1].ID.Int64() != 2 || students[1].Name != "Bob" {
		t.Logf("got: %d %s", students[1].ID, students[1].Name)
		t.Logf("exp: %d %s", 2, "Bob")
		t.Fatalf("Should get back the second student.")
	}

	rec, err := reg.StudentByID(ctx, big.NewInt(2))
	if err != nil {
		t.Fatalf("Should be able to read a student by id: %s", err)
	}
	if rec.Name != "Bob" {
		t.Logf("got: %s", rec.Name)
		t.Logf("exp: %s", "Bob")
		t.Fatalf("Should get back the right student.")
	}

	if _, err := reg.StudentByID(ctx, big.NewInt(99)); err == nil {
		t.Fatalf("Should not be able to read an unknown id.")
	}
}

func Test_Writes(t *testing.T) {
	t.Log("Given the need to register and remove students with transactions.")
	{
		backend, err := contracttest.New(chainID)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the backend: %s", failed, err)
		}

		reg, err := contract.New(common.HexToAddress(address), backend)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to bind the contract: %s", failed, err)
		}

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
		}

		opts, err := bind.NewKeyedTransactorWithChainID(pk, big.NewInt(chainID))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a transactor: %s", failed, err)
		}

		ctx := context.Background()
		opts.Context = ctx

		tx, err := reg.RegisterStudent(opts, "Alice")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to register a student: %s", failed, err)
		}
		if _, err := contract.WaitMined(ctx, backend, tx); err != nil {
			t.Fatalf("\t%s\tShould be able to wait for the registration: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to register a student.", success)

		students, err := reg.AllStudents(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read all students: %s", failed, err)
		}
		if len(students) != 1 || students[0].Name != "Alice" {
			t.Logf("\t\tgot: %v", students)
			t.Fatalf("\t%s\tShould see the registered student.", failed)
		}
		t.Logf("\t%s\tShould see the registered student.", success)

		tx, err = reg.RemoveStudent(opts, students[0].ID)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to remove a student: %s", failed, err)
		}
		if _, err := contract.WaitMined(ctx, backend, tx); err != nil {
			t.Fatalf("\t%s\tShould be able to wait for the removal: %s", failed, err)
		}

		total, err := reg.TotalStudents(ctx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the total: %s", failed, err)
		}
		if total.Sign() != 0 {
			t.Fatalf("\t%s\tShould have no students left, got %d.", failed, total)
		}
		t.Logf("\t%s\tShould be able to remove a student.", success)

		if _, err := reg.RemoveStudent(opts, big.NewInt(42)); err == nil {
			t.Fatalf("\t%s\tShould fail to remove an unknown id.", failed)
		}
		t.Logf("\t%s\tShould fail to remove an unknown id.", success)
	}
}

func Test_ParseBytecode(t *testing.T) {
	type table struct {
		name string
		data string
		size int
		fail bool
	}

	tt := []table{
		{name: "hex", data: "0x6080604052", size: 5},
		{name: "bare", data: "6080604052\n", size: 5},
		{name: "artifact", data: `{"contractName":"StudentRegister","bytecode":"0x60806040"}`, size: 4},
		{name: "empty", data: `{"contractName":"StudentRegister","bytecode":"0x"}`, fail: true},
		{name: "garbage", data: "zz", fail: true},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			code, err := contract.ParseBytecode([]byte(tst.data))
			if tst.fail {
				if err == nil {
					t.Fatalf("Test %s:\tShould fail to parse the bytecode.", tst.name)
				}
				return
			}

			if err != nil {
				t.Fatalf("Test %s:\tShould be able to parse the bytecode: %s", tst.name, err)
			}

			if len(code) != tst.size {
				t.Logf("Test %s:\tgot: %d", tst.name, len(code))
				t.Logf("Test %s:\texp: %d", tst.name, tst.size)
				t.Fatalf("Test %s:\tShould get back the right number of bytes.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Reverted(t *testing.T) {
	t.Log("Given the need to detect a mined transaction that reverted.")
	{
		backend, err := contracttest.New(chainID)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the backend: %s", failed, err)
		}

		reg, err := contract.New(common.HexToAddress(address), backend)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to bind the contract: %s", failed, err)
		}

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
		}

		opts, err := bind.NewKeyedTransactorWithChainID(pk, big.NewInt(chainID))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a transactor: %s", failed, err)
		}

		ctx := context.Background()
		opts.Context = ctx

		// A fixed gas limit skips estimation so the revert happens on chain.
		opts.GasLimit = 100_000

		tx, err := reg.RemoveStudent(opts, big.NewInt(42))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to send the removal: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to send the removal.", success)

		receipt, err := contract.WaitMined(ctx, backend, tx)
		if !errors.Is(err, contract.ErrReverted) {
			t.Logf("\t\tgot: %v", err)
			t.Logf("\t\texp: %v", contract.ErrReverted)
			t.Fatalf("\t%s\tShould report the transaction as reverted.", failed)
		}
		if receipt == nil {
			t.Fatalf("\t%s\tShould return the failed receipt.", failed)
		}
		t.Logf("\t%s\tShould report the transaction as reverted.", success)
	}
}

func Test_Deploy(t *testing.T) {
	t.Log("Given the need to deploy the contract from bytecode.")
	{
		backend, err := contracttest.New(chainID)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the backend: %s", failed, err)
		}

		pk, err := crypto.HexToECDSA(pkHexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
		}

		opts, err := bind.NewKeyedTransactorWithChainID(pk, big.NewInt(chainID))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a transactor: %s", failed, err)
		}

		ctx := context.Background()
		opts.Context = ctx

		bytecode, err := contract.ParseBytecode([]byte("0x6080"))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to parse the bytecode: %s", failed, err)
		}

		addr, tx, err := contract.Deploy(opts, backend, bytecode)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to deploy: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to deploy.", success)

		receipt, err := contract.WaitMined(ctx, backend, tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to wait for the deployment: %s", failed, err)
		}

		if receipt.ContractAddress != addr {
			t.Logf("\t\tgot: %s", receipt.ContractAddress.Hex())
			t.Logf("\t\texp: %s", addr.Hex())
			t.Fatalf("\t%s\tShould mine the contract at the returned address.", failed)
		}
		t.Logf("\t%s\tShould mine the contract at the returned address.", success)
	}
}
