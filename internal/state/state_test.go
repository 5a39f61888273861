package state_test

import (
	"testing"

	internalerrors "empower1.com/empower1blockchain/internal/errors"
	"empower1.com/empower1blockchain/internal/state"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/txmodel"
)

func addr(b byte) txmodel.Address {
	var a txmodel.Address
	a[19] = b
	return a
}

func TestEnsureMaterializesAtInitialBalance(t *testing.T) {
	s := state.New(storage.NewMemory(), 10000)
	a := addr(1)

	acc, err := s.Ensure(a)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if acc.Balance != 10000 {
		t.Fatalf("expected initial balance 10000, got %d", acc.Balance)
	}
	if acc.Nonce != 0 {
		t.Fatalf("expected initial nonce 0, got %d", acc.Nonce)
	}
}

func TestGetUnknownAccountErrors(t *testing.T) {
	s := state.New(storage.NewMemory(), 10000)
	if _, err := s.Get(addr(9)); err != internalerrors.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestTransferMovesBalance(t *testing.T) {
	s := state.New(storage.NewMemory(), 10000)
	from, to := addr(1), addr(2)
	if _, err := s.Ensure(from); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ensure(to); err != nil {
		t.Fatal(err)
	}

	if err := s.Transfer(from, to, 1500); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	fromAcc, _ := s.Get(from)
	toAcc, _ := s.Get(to)
	if fromAcc.Balance != 8500 {
		t.Fatalf("expected sender balance 8500, got %d", fromAcc.Balance)
	}
	if toAcc.Balance != 11500 {
		t.Fatalf("expected recipient balance 11500, got %d", toAcc.Balance)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	s := state.New(storage.NewMemory(), 100)
	from, to := addr(1), addr(2)
	if err := s.Transfer(from, to, 1000); err != internalerrors.ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestUpdateNonceRejectsGapsAndReplays(t *testing.T) {
	s := state.New(storage.NewMemory(), 100)
	a := addr(1)
	if _, err := s.Ensure(a); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateNonce(a, 1); err != nil {
		t.Fatalf("expected nonce 1 to be accepted: %v", err)
	}
	if err := s.UpdateNonce(a, 1); err == nil {
		t.Fatalf("expected replay of nonce 1 to be rejected")
	}
	if err := s.UpdateNonce(a, 5); err == nil {
		t.Fatalf("expected a gapped nonce to be rejected")
	}
}

func TestRootHashDeterministicRegardlessOfInsertionOrder(t *testing.T) {
	s1 := state.New(storage.NewMemory(), 10000)
	s2 := state.New(storage.NewMemory(), 10000)

	a, b, c := addr(1), addr(2), addr(3)

	for _, a := range []txmodel.Address{a, b, c} {
		if _, err := s1.Ensure(a); err != nil {
			t.Fatal(err)
		}
	}
	for _, a := range []txmodel.Address{c, b, a} {
		if _, err := s2.Ensure(a); err != nil {
			t.Fatal(err)
		}
	}

	if s1.RootHash() != s2.RootHash() {
		t.Fatalf("root hash depends on insertion order: %x != %x", s1.RootHash(), s2.RootHash())
	}
}

func TestDeployContractAddressIsDeterministic(t *testing.T) {
	s := state.New(storage.NewMemory(), 10000)
	owner := addr(1)
	if _, err := s.Ensure(owner); err != nil {
		t.Fatal(err)
	}

	want := state.ContractAddress(owner, 0)
	got, err := s.DeployContract(owner, []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("DeployContract failed: %v", err)
	}
	if got != want {
		t.Fatalf("deploy address mismatch: got %x want %x", got, want)
	}

	acc, err := s.Get(got)
	if err != nil {
		t.Fatalf("deployed account not found: %v", err)
	}
	if !acc.IsContract() {
		t.Fatalf("expected deployed account to carry a code hash")
	}
}
