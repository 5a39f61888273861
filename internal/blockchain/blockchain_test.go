package blockchain_test

import (
	"context"
	"testing"
	"time"

	"empower1.com/empower1blockchain/internal/blockchain"
	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/txmodel"
)

func newChain(t *testing.T) (*blockchain.BlockChain, func()) {
	t.Helper()
	db := storage.NewMemory()
	bc, err := blockchain.New(db, nil, 10000)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return bc, func() {}
}

func tick(t *testing.T, bc *blockchain.BlockChain) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		bc.RunPipeline(ctx, 5*time.Millisecond)
		close(done)
	}()
	<-ctx.Done()
	<-done
}

// S1: after a transfer is mined, sender and recipient balances reflect it.
func TestTransferScenario(t *testing.T) {
	bc, cleanup := newChain(t)
	defer cleanup()

	sender, err := cryptoutil.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	senderAddr := cryptoutil.PrivateKeyToAddress(sender)
	var recipient txmodel.Address
	recipient[19] = 0xAA

	if _, err := bc.GetBalance(senderAddr); err != nil {
		t.Fatal(err)
	}

	tx := txmodel.NewTransfer(senderAddr, recipient, 1000, 1)
	signed, err := txmodel.Sign(tx, sender)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if err := bc.SendTransaction(signed); err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}

	tick(t, bc)

	senderBal, _ := bc.GetBalance(senderAddr)
	recipientBal, _ := bc.GetBalance(recipient)
	if senderBal != 9000 {
		t.Fatalf("expected sender balance 9000, got %d", senderBal)
	}
	if recipientBal != 11000 {
		t.Fatalf("expected recipient balance 11000, got %d", recipientBal)
	}

	receipt, err := bc.GetTransactionReceipt(signed.TransactionHash)
	if err != nil {
		t.Fatalf("GetTransactionReceipt failed: %v", err)
	}
	if !receipt.Status {
		t.Fatalf("expected receipt status true")
	}
}

// S2: sealing a block with transactions changes the state root.
func TestStateRootChangesAfterBlock(t *testing.T) {
	bc, cleanup := newChain(t)
	defer cleanup()

	before := bc.CurrentBlock().StateRoot

	sender, _ := cryptoutil.GenerateKeypair()
	senderAddr := cryptoutil.PrivateKeyToAddress(sender)
	var recipient txmodel.Address
	recipient[19] = 0x01

	tx := txmodel.NewTransfer(senderAddr, recipient, 10, 1)
	signed, _ := txmodel.Sign(tx, sender)
	if err := bc.SendTransaction(signed); err != nil {
		t.Fatal(err)
	}
	tick(t, bc)

	after := bc.CurrentBlock().StateRoot
	if before == after {
		t.Fatalf("expected state root to change after block with transactions")
	}
}

// S4: a transaction with a nonce gap is requeued, not dropped, and later
// completes once earlier nonces have landed.
func TestGappedNonceIsRequeuedNotDropped(t *testing.T) {
	bc, cleanup := newChain(t)
	defer cleanup()

	sender, _ := cryptoutil.GenerateKeypair()
	senderAddr := cryptoutil.PrivateKeyToAddress(sender)
	var recipient txmodel.Address
	recipient[19] = 0x02

	gapTx := txmodel.NewTransfer(senderAddr, recipient, 5, 3)
	gapSigned, _ := txmodel.Sign(gapTx, sender)
	if err := bc.SendTransaction(gapSigned); err != nil {
		t.Fatal(err)
	}
	tick(t, bc)

	if _, err := bc.GetTransactionReceipt(gapSigned.TransactionHash); err == nil {
		t.Fatalf("expected no receipt yet for a gapped nonce")
	}

	firstTx := txmodel.NewTransfer(senderAddr, recipient, 5, 1)
	firstSigned, _ := txmodel.Sign(firstTx, sender)
	secondTx := txmodel.NewTransfer(senderAddr, recipient, 5, 2)
	secondSigned, _ := txmodel.Sign(secondTx, sender)

	if err := bc.SendTransaction(firstSigned); err != nil {
		t.Fatal(err)
	}
	if err := bc.SendTransaction(secondSigned); err != nil {
		t.Fatal(err)
	}
	tick(t, bc)
	tick(t, bc)

	if _, err := bc.GetTransactionReceipt(gapSigned.TransactionHash); err != nil {
		t.Fatalf("expected the requeued transaction to eventually land: %v", err)
	}
}

func TestBlockByNumberOutOfRange(t *testing.T) {
	bc, cleanup := newChain(t)
	defer cleanup()

	if _, err := bc.BlockByNumber(5); err == nil {
		t.Fatalf("expected an error for an out-of-range block number")
	}
	genesis, err := bc.BlockByNumber(0)
	if err != nil {
		t.Fatalf("expected genesis block at number 0: %v", err)
	}
	if genesis.Number != 0 {
		t.Fatalf("expected genesis.Number == 0, got %d", genesis.Number)
	}
}
