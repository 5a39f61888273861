// Package config holds the node's startup configuration, sourced from
// flags with environment variable fallbacks — the same minimal,
// no-config-file approach the node's predecessor used for its handful of
// tunables.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config is the full set of values a running node needs at startup.
type Config struct {
	RPCAddr        string
	DBPath         string
	KeyDir         string
	TickInterval   time.Duration
	InitialBalance uint64
}

// Default returns the node's out-of-the-box configuration.
func Default() Config {
	return Config{
		RPCAddr:        "127.0.0.1:8545",
		DBPath:         "./.tmp/db",
		KeyDir:         "./.keys",
		TickInterval:   time.Second,
		InitialBalance: 10000,
	}
}

// Parse builds a Config from command-line flags, falling back to
// environment variables and then to Default()'s values.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("empower1d", flag.ContinueOnError)
	fs.StringVar(&cfg.RPCAddr, "rpc-addr", envOr("EMPOWER1_RPC_ADDR", cfg.RPCAddr), "JSON-RPC listen address")
	fs.StringVar(&cfg.DBPath, "db-path", envOr("EMPOWER1_DB_PATH", cfg.DBPath), "path to the on-disk key/value store")
	fs.StringVar(&cfg.KeyDir, "key-dir", envOr("EMPOWER1_KEY_DIR", cfg.KeyDir), "directory holding the node's key pair")

	tickDefault := cfg.TickInterval
	if v := os.Getenv("EMPOWER1_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tickDefault = d
		}
	}
	fs.DurationVar(&cfg.TickInterval, "tick-interval", tickDefault, "block-building pipeline interval")

	balDefault := cfg.InitialBalance
	if v := os.Getenv("EMPOWER1_INITIAL_BALANCE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			balDefault = n
		}
	}
	fs.Uint64Var(&cfg.InitialBalance, "initial-balance", balDefault, "balance assigned to a freshly materialized account")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
