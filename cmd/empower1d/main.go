package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empower1.com/empower1blockchain/internal/blockchain"
	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/keystore"
	"empower1.com/empower1blockchain/internal/rpcapi"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/wallet"
)

// node bundles the running services runNode wires up, so main can start and
// stop them as a unit and tests can drive the same sequence headlessly.
type node struct {
	chain      *blockchain.BlockChain
	db         storage.KV
	httpServer *http.Server
	cancel     context.CancelFunc
	done       chan struct{}
}

// Stop cancels the pipeline, shuts down the RPC server, and closes the
// database, blocking until the pipeline goroutine has exited.
func (n *node) Stop() {
	n.cancel()
	<-n.done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("empower1d: RPC server shutdown error: %v", err)
	}
	if err := n.db.Close(); err != nil {
		log.Printf("empower1d: database close error: %v", err)
	}
}

func runNode(cfg config.Config) (*node, error) {
	log.Println("Initializing EmPower1 node components...")

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", cfg.DBPath, err)
	}
	log.Printf("Database opened at %s.", cfg.DBPath)

	keys, err := keystore.Load(cfg.KeyDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load node keys from %s: %w", cfg.KeyDir, err)
	}
	log.Printf("Node identity loaded. Address: %s", keys.Address)

	chain, err := blockchain.New(db, keys, cfg.InitialBalance)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize blockchain: %w", err)
	}
	log.Printf("Blockchain initialized. Genesis hash: %x", chain.CurrentBlock().Hash)

	accounts := wallet.NewAccountManager()
	accounts.Register(keys.Private)
	log.Println("Account manager seeded with the node's own identity.")

	svc := rpcapi.NewEthService(chain, accounts, keys)
	handler, err := rpcapi.NewHTTPHandler(svc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build RPC handler: %w", err)
	}
	httpServer := &http.Server{Addr: cfg.RPCAddr, Handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		chain.RunPipeline(ctx, cfg.TickInterval)
	}()
	log.Printf("Block-building pipeline started at a %s interval.", cfg.TickInterval)

	go func() {
		log.Printf("JSON-RPC server listening on %s", cfg.RPCAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("empower1d: RPC server error: %v", err)
		}
	}()

	return &node{
		chain:      chain,
		db:         db,
		httpServer: httpServer,
		cancel:     cancel,
		done:       done,
	}, nil
}

func main() {
	log.Println("Starting EmPower1 blockchain node (empower1d)...")

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to parse configuration: %v", err)
	}

	n, err := runNode(cfg)
	if err != nil {
		log.Fatalf("node initialization failed: %v", err)
	}

	log.Println("Node running. Press Ctrl+C to stop.")
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdownChannel
	log.Printf("caught signal: %v. Starting graceful shutdown...", sig)

	n.Stop()
	log.Println("EmPower1 blockchain node shut down gracefully.")
}
