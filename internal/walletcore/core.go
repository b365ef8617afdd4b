package walletcore

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/klingon-exchange/custodial-wallet/internal/codec"
	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/klingon-exchange/custodial-wallet/pkg/logging"
)

// Daemon is the per-coin RPC surface walletcore needs: everything
// internal/txbuilder.DaemonClient requires, plus the keyseeder-style
// calls account creation uses. internal/daemonrpc.Client implements it.
type Daemon interface {
	txbuilder.DaemonClient
	GetNewAddress(ctx context.Context) (string, error)
	DumpPrivKey(ctx context.Context, address string) (string, error)
	MempoolSize(ctx context.Context) (int, error)
}

// Core bundles the per-process shared state the wallet core's
// operations run against: the wallet DB, one indexer DB and daemon
// client per configured coin, the coin registry, the process-wide
// encryption key, and the two named locks of spec §5.
type Core struct {
	Wallet  *store.WalletDB
	Indexer map[string]*store.IndexerDB
	Daemons map[string]Daemon
	Coins   map[string]*coin.Coin

	encryptionKey encryptionKey
	logger        *logging.Logger

	// createLock serializes the entire account create/import flow
	// (spec §4.4.2); txLock serializes UTXO selection and funding
	// across concurrent sends (spec §4.4.3). Both are plain mutexes:
	// mutual exclusion only, no reentrancy.
	createLock sync.Mutex
	txLock     sync.Mutex
}

// New builds a Core over already-opened per-coin resources.
func New(wallet *store.WalletDB, indexer map[string]*store.IndexerDB, daemons map[string]Daemon, coins map[string]*coin.Coin, encKeyHex string, logger *logging.Logger) (*Core, error) {
	key, err := ParseEncryptionKey(encKeyHex)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetDefault().Component("walletcore")
	}
	return &Core{
		Wallet:        wallet,
		Indexer:       indexer,
		Daemons:       daemons,
		Coins:         coins,
		encryptionKey: key,
		logger:        logger,
	}, nil
}

// coinFor looks up a configured coin by ticker.
func (c *Core) coinFor(ticker string) (*coin.Coin, error) {
	co, ok := c.Coins[ticker]
	if !ok {
		return nil, walleterr.Newf(walleterr.CoinNotDefined, "coin %q is not configured", ticker)
	}
	return co, nil
}

func (c *Core) indexerFor(ticker string) (*store.IndexerDB, error) {
	idx, ok := c.Indexer[ticker]
	if !ok {
		return nil, walleterr.Newf(walleterr.CoinNotDefined, "no indexer configured for coin %q", ticker)
	}
	return idx, nil
}

func (c *Core) daemonFor(ticker string) (Daemon, error) {
	d, ok := c.Daemons[ticker]
	if !ok {
		return nil, walleterr.Newf(walleterr.CoinNotDefined, "no daemon configured for coin %q", ticker)
	}
	return d, nil
}

// IndexerFor and DaemonFor expose coinFor/indexerFor/daemonFor's
// lookups to the background processor (internal/worker), which lives
// outside this package but needs the same per-coin resources.
func (c *Core) IndexerFor(ticker string) (*store.IndexerDB, error) { return c.indexerFor(ticker) }
func (c *Core) DaemonFor(ticker string) (Daemon, error)            { return c.daemonFor(ticker) }

// pubKeyHashFromScalar derives the compressed-pubkey hash160 of a raw
// secp256k1 scalar, the pubkeyhash invariant of spec §3.
func pubKeyHashFromScalar(scalar []byte) ([]byte, error) {
	_, pub := btcec.PrivKeyFromBytes(scalar)
	return codec.Hash160(pub.SerializeCompressed()), nil
}
