package rpcapi

import (
	"encoding/json"
	"testing"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/txmodel"
)

func TestBlockNumberUnmarshalsLatestAndHex(t *testing.T) {
	var latest BlockNumber
	if err := json.Unmarshal([]byte(`"latest"`), &latest); err != nil {
		t.Fatalf("unmarshal latest: %v", err)
	}
	if !latest.Latest {
		t.Fatalf("expected Latest=true")
	}

	var numbered BlockNumber
	if err := json.Unmarshal([]byte(`"0x1a"`), &numbered); err != nil {
		t.Fatalf("unmarshal hex: %v", err)
	}
	if numbered.Number != 0x1a {
		t.Fatalf("expected 0x1a, got %#x", numbered.Number)
	}
}

func TestBlockNumberUnmarshalRejectsGarbage(t *testing.T) {
	var bn BlockNumber
	if err := json.Unmarshal([]byte(`"not-a-number"`), &bn); err == nil {
		t.Fatalf("expected an error for an unparseable block number")
	}
}

func TestTransactionRequestWireRoundTrip(t *testing.T) {
	priv, err := cryptoutil.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	from := cryptoutil.PrivateKeyToAddress(priv)
	var to txmodel.Address
	to[19] = 0x07

	w := transactionRequestWire{
		From:   from.String(),
		To:     to.String(),
		Amount: "0x64",
		Data:   "0xdead",
	}
	req, err := w.toRequest()
	if err != nil {
		t.Fatalf("toRequest failed: %v", err)
	}
	if req.From != from {
		t.Fatalf("expected From to round-trip")
	}
	if req.To == nil || *req.To != to {
		t.Fatalf("expected To to round-trip")
	}
	if req.Amount != 0x64 {
		t.Fatalf("expected amount 0x64, got %d", req.Amount)
	}
	if len(req.Data) != 2 || req.Data[0] != 0xde || req.Data[1] != 0xad {
		t.Fatalf("expected data to round-trip, got %x", req.Data)
	}
}

func TestTransactionRequestWireRejectsBadAddress(t *testing.T) {
	w := transactionRequestWire{From: "not-hex"}
	if _, err := w.toRequest(); err == nil {
		t.Fatalf("expected an error for a malformed from address")
	}
}
