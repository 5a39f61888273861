package wallet

import (
	"testing"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/txmodel"
)

func TestAccountManagerAddAndGet(t *testing.T) {
	m := NewAccountManager()
	addr, err := m.Add()
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	priv, err := m.Get(addr)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if AddressFor(priv) != addr {
		t.Fatalf("expected the stored key to derive the address it was added under")
	}
}

func TestAccountManagerGetUnknownErrors(t *testing.T) {
	m := NewAccountManager()
	if _, err := m.Get(cryptoutil.Address{}); err == nil {
		t.Fatalf("expected an error for an unmanaged address")
	}
}

func TestAccountManagerRegisterSeedsAndLists(t *testing.T) {
	m := NewAccountManager()
	priv, err := cryptoutil.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := m.Register(priv)

	accounts := m.Accounts()
	found := false
	for _, a := range accounts {
		if a == addr {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Accounts() to include the registered address")
	}
}

func TestBuildAndSignProducesVerifiableTransaction(t *testing.T) {
	priv, err := cryptoutil.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	from := AddressFor(priv)
	var to txmodel.Address
	to[19] = 0x11

	req := txmodel.TransactionRequest{From: from, To: &to, Amount: 100}
	signed, err := BuildAndSign(req, 1, priv)
	if err != nil {
		t.Fatalf("BuildAndSign failed: %v", err)
	}
	ok, err := signed.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected the built transaction to verify against its signer")
	}
}
