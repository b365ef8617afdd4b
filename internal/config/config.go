// Package config loads and saves the wallet daemon's YAML
// configuration file: database connection info, the process-wide
// encryption key, coin daemon and keyseeder credentials, and the
// set of configured coins (spec §6).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CoinConfig is one entry of the COINS configuration list: the
// operational parameters a coin.Coin is built from (consensus
// parameters come from internal/coin's registry, looked up by Symbol).
type CoinConfig struct {
	Symbol         string `yaml:"symbol"`
	Network        string `yaml:"network"`
	DBName         string `yaml:"db_name"`
	RPCHost        string `yaml:"rpc_host"`
	RPCPort        int    `yaml:"rpc_port"`
	AllowTxSubsidy bool   `yaml:"allow_tx_subsidy"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	DatabaseProtocol    string `yaml:"database_protocol"`
	DatabaseHost        string `yaml:"database_host"`
	DatabaseWalletDB    string `yaml:"database_wallet_db"`
	DatabaseCredentials string `yaml:"database_credentials"`

	// EncryptionKey is hex-encoded, 16 bytes, the process-wide AES key
	// used to encrypt every Account.EncryptedKey.
	EncryptionKey string `yaml:"encryption_key"`

	CoinDaemonCredentials string `yaml:"coindaemon_credentials"`
	KeyseederCredentials  string `yaml:"keyseeder_credentials"`
	Keyseeder             string `yaml:"keyseeder"`

	Coins []CoinConfig `yaml:"coins"`

	IndexerBaseURL string `yaml:"indexer_base_url"`
	APIListenAddr  string `yaml:"api_listen_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a Config with conservative local-development
// defaults: a single BTC testnet entry, SQLite-local database paths,
// and info-level logging.
func DefaultConfig() *Config {
	return &Config{
		DatabaseProtocol:      "sqlite3",
		DatabaseHost:          "~/.walletd/data",
		DatabaseWalletDB:      "wallet.db",
		DatabaseCredentials:   "",
		EncryptionKey:         "00000000000000000000000000000000",
		CoinDaemonCredentials: "user:pass",
		KeyseederCredentials:  "",
		Keyseeder:             "",
		Coins: []CoinConfig{
			{Symbol: "BTC", Network: "testnet", DBName: "btc_testnet.db", RPCHost: "127.0.0.1", RPCPort: 18332, AllowTxSubsidy: false},
		},
		IndexerBaseURL: "http://127.0.0.1:8080",
		APIListenAddr:  ":8090",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// ConfigPath returns the default configuration file location,
// ~/.walletd/config.yaml, tilde-expanded.
func ConfigPath() string {
	return expandPath("~/.walletd/config.yaml")
}

// LoadConfig reads path, seeding defaults for any field the file
// leaves unset. If the file doesn't exist, a default configuration is
// written there and returned so the process can start without one.
func LoadConfig(path string) (*Config, error) {
	path = expandPath(path)
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := Save(cfg, path); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML with a header comment, creating
// parent directories as needed, mode 0600 since it holds credentials.
func Save(cfg *Config, path string) error {
	path = expandPath(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := "# walletd configuration. Generated automatically if absent at startup.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0600)
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
