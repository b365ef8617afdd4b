// Package main provides walletd, the custodial wallet daemon: loads
// configuration, opens the wallet and per-coin indexer databases,
// wires one daemon RPC client per configured coin, and runs the
// background processor until signalled to shut down.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/config"
	"github.com/klingon-exchange/custodial-wallet/internal/daemonrpc"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/walletcore"
	"github.com/klingon-exchange/custodial-wallet/internal/worker"
	"github.com/klingon-exchange/custodial-wallet/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", config.ConfigPath(), "Config file path")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("walletd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	log = logging.New(&logging.Config{Level: level, Format: cfg.LogFormat, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", *configFile)

	dataDir := expandPath(cfg.DatabaseHost)
	wallet, err := store.OpenWalletDB(filepath.Join(dataDir, cfg.DatabaseWalletDB))
	if err != nil {
		log.Fatal("failed to open wallet database", "error", err)
	}
	defer wallet.Close()
	log.Info("wallet database opened", "path", filepath.Join(dataDir, cfg.DatabaseWalletDB))

	indexers := make(map[string]*store.IndexerDB)
	daemons := make(map[string]walletcore.Daemon)
	coins := make(map[string]*coin.Coin)
	tickers := make([]string, 0, len(cfg.Coins))

	daemonUser, daemonPass := splitCredentials(cfg.CoinDaemonCredentials)

	for _, cc := range cfg.Coins {
		co, err := coin.New(cc.Symbol, coin.Network(cc.Network), cc.DBName, cc.RPCHost, cc.RPCPort, cc.AllowTxSubsidy)
		if err != nil {
			log.Fatal("failed to configure coin", "coin", cc.Symbol, "error", err)
		}
		coins[cc.Symbol] = co

		idx, err := store.OpenIndexerDB(filepath.Join(dataDir, cc.DBName))
		if err != nil {
			log.Fatal("failed to open indexer database", "coin", cc.Symbol, "error", err)
		}
		defer idx.Close()
		indexers[cc.Symbol] = idx

		rpcURL := "http://" + cc.RPCHost + ":" + strconv.Itoa(cc.RPCPort)
		daemons[cc.Symbol] = daemonrpc.New(rpcURL, daemonUser, daemonPass)
		tickers = append(tickers, cc.Symbol)

		log.Info("coin configured", "coin", cc.Symbol, "network", cc.Network, "rpc", rpcURL)
	}

	core, err := walletcore.New(wallet, indexers, daemons, coins, cfg.EncryptionKey, log.Component("walletcore"))
	if err != nil {
		log.Fatal("failed to build wallet core", "error", err)
	}

	processor := worker.New(core, tickers, log.Component("processor"))
	processor.Start()
	log.Info("background processor started", "coins", tickers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	processor.Stop()
	log.Info("goodbye")
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

func splitCredentials(s string) (user, pass string) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return s, ""
}
