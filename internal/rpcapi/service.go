package rpcapi

import (
	"context"
	"fmt"
	"net/http"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"

	"empower1.com/empower1blockchain/internal/blockchain"
	"empower1.com/empower1blockchain/internal/keystore"
	"empower1.com/empower1blockchain/internal/txmodel"
	"empower1.com/empower1blockchain/internal/wallet"
)

// EthService is registered under the "eth" namespace; go-ethereum/rpc turns
// each exported method into eth_methodName, so the method names below are
// chosen to read as the JSON-RPC verb directly.
type EthService struct {
	chain    *blockchain.BlockChain
	accounts *wallet.AccountManager
	keys     *keystore.Keys
}

// NewEthService builds the service the HTTP handler registers.
func NewEthService(chain *blockchain.BlockChain, accounts *wallet.AccountManager, keys *keystore.Keys) *EthService {
	return &EthService{chain: chain, accounts: accounts, keys: keys}
}

// BlockNumber implements eth_blockNumber.
func (s *EthService) BlockNumber(ctx context.Context) (string, error) {
	return hexUint64(s.chain.CurrentBlock().Number), nil
}

// GetBlockByNumber implements eth_getBlockByNumber.
func (s *EthService) GetBlockByNumber(ctx context.Context, number BlockNumber) (blockWire, error) {
	n := number.Number
	if number.Latest {
		n = s.chain.CurrentBlock().Number
	}
	block, err := s.chain.BlockByNumber(n)
	if err != nil {
		return blockWire{}, err
	}
	return blockToWire(block), nil
}

// GetBalance implements eth_getBalance.
func (s *EthService) GetBalance(ctx context.Context, address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	bal, err := s.chain.GetBalance(addr)
	if err != nil {
		return "", err
	}
	return hexUint64(bal), nil
}

// GetTransactionCount implements eth_getTransactionCount, returning addr's
// current nonce — the count of transactions it has sent so far.
func (s *EthService) GetTransactionCount(ctx context.Context, address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := s.chain.GetNonce(addr)
	if err != nil {
		return "", err
	}
	return hexUint64(nonce), nil
}

// GetCode implements eth_getCode.
func (s *EthService) GetCode(ctx context.Context, address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	code, err := s.chain.GetCode(addr)
	if err != nil {
		return "", err
	}
	return hexBytes(code), nil
}

// SendTransaction implements eth_sendTransaction: the node signs on behalf
// of a locally-managed account and queues the result for the next tick.
func (s *EthService) SendTransaction(ctx context.Context, req transactionRequestWire) (string, error) {
	txReq, err := req.toRequest()
	if err != nil {
		return "", err
	}
	priv, err := s.accounts.Get(txReq.From)
	if err != nil {
		return "", err
	}
	nonce, err := s.chain.GetNonce(txReq.From)
	if err != nil {
		return "", err
	}
	signed, err := wallet.BuildAndSign(txReq, nonce+1, priv)
	if err != nil {
		return "", err
	}
	if err := s.chain.SendTransaction(signed); err != nil {
		return "", err
	}
	return hexHash(signed.TransactionHash), nil
}

// SendRawTransaction implements eth_sendRawTransaction: an already-signed
// envelope, RLP-encoded and hex-wrapped, submitted by an external signer.
func (s *EthService) SendRawTransaction(ctx context.Context, raw string) (string, error) {
	data, err := hexBytesDecode(raw)
	if err != nil {
		return "", err
	}
	signed, err := txmodel.DecodeRawTransaction(data)
	if err != nil {
		return "", err
	}
	if err := s.chain.SendTransaction(signed); err != nil {
		return "", err
	}
	return hexHash(signed.TransactionHash), nil
}

// GetTransactionReceipt implements eth_getTransactionReceipt.
func (s *EthService) GetTransactionReceipt(ctx context.Context, hash string) (receiptWire, error) {
	data, err := hexBytesDecode(hash)
	if err != nil || len(data) != 32 {
		return receiptWire{}, fmt.Errorf("rpcapi: invalid transaction hash %q", hash)
	}
	var h [32]byte
	copy(h[:], data)
	receipt, err := s.chain.GetTransactionReceipt(h)
	if err != nil {
		return receiptWire{}, err
	}
	return receiptToWire(receipt), nil
}

// AddAccount implements eth_addAccount: generates a fresh local keypair the
// node will sign on behalf of for future eth_sendTransaction calls.
func (s *EthService) AddAccount(ctx context.Context) (string, error) {
	addr, err := s.accounts.Add()
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// Accounts implements eth_accounts.
func (s *EthService) Accounts(ctx context.Context) ([]string, error) {
	addrs := s.accounts.Accounts()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out, nil
}

// NewHTTPHandler wraps a go-ethereum JSON-RPC server exposing svc under the
// "eth" namespace behind permissive CORS, matching the node's role as a
// locally-run development chain rather than a hardened public endpoint.
func NewHTTPHandler(svc *EthService) (http.Handler, error) {
	server := gethrpc.NewServer()
	if err := server.RegisterName("eth", svc); err != nil {
		return nil, fmt.Errorf("rpcapi: register eth namespace: %w", err)
	}
	handler := cors.AllowAll().Handler(server)
	return handler, nil
}
