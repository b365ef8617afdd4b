package txbuilder

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/shopspring/decimal"
)

// State is a transaction's position in the Unsigned -> Signed ->
// Broadcast[?Seen] state machine, with terminal Failed.
type State int

const (
	StateUnsigned State = iota
	StateSigned
	StateBroadcast
	StateSeen
	StateFailed
)

// DaemonClient is the subset of the coin daemon's RPC surface the
// transaction builder needs. internal/daemonrpc.Client implements it.
type DaemonClient interface {
	SignRawTransactionWithKey(ctx context.Context, rawHex, wif string) (signedHex string, err error)
	BroadcastRawTransaction(ctx context.Context, signedHex string) (txid string, err error)
}

// TxObserver reports whether the indexer has recorded a transaction.
// internal/store's IndexerDB implements it.
type TxObserver interface {
	HasTransaction(ctx context.Context, txid string) (bool, error)
}

const (
	seenPollTimeout  = 10 * time.Second
	seenPollInterval = 1 * time.Second
)

// SignedTransaction carries a transaction through signing, broadcast,
// and (optionally) the seen-on-network wait.
type SignedTransaction struct {
	Funded *FundedTx
	State  State
	Kind   walleterr.Kind // populated only when State == StateFailed

	RawHex string
	TxID   string

	// LocalTxID is the txid this process computed itself from the
	// signed wire bytes (double-SHA256, byte-reversed). Broadcast
	// checks the daemon's reported TxID against it.
	LocalTxID string
}

// Sign asks the coin daemon to sign the funded transaction with the
// account's WIF-encoded private key.
func (ft *FundedTx) Sign(ctx context.Context, daemon DaemonClient, wif string) (*SignedTransaction, error) {
	signedHex, err := daemon.SignRawTransactionWithKey(ctx, ft.Tx.RawHex(), wif)
	if err != nil {
		return &SignedTransaction{Funded: ft, State: StateFailed, Kind: walleterr.Of(err)}, err
	}
	localTxID, err := txIDFromRawHex(signedHex)
	if err != nil {
		return &SignedTransaction{Funded: ft, State: StateFailed, Kind: walleterr.InvalidTransactionOutputType}, err
	}
	return &SignedTransaction{Funded: ft, State: StateSigned, RawHex: signedHex, LocalTxID: localTxID}, nil
}

// txIDFromRawHex computes a transaction's txid the way every
// Bitcoin-family node does: double-SHA256 over the raw wire bytes,
// displayed byte-reversed. chainhash.Hash.String() already performs
// that reversal.
func txIDFromRawHex(rawHex string) (string, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return "", err
	}
	hash := chainhash.DoubleHashH(raw)
	return hash.String(), nil
}

// ActualFeeRate returns the fee actually paid, per kilobyte of the
// signed wire size.
func (st *SignedTransaction) ActualFeeRate() decimal.Decimal {
	wireSize := len(st.RawHex) / 2
	if wireSize == 0 {
		return decimal.Zero
	}
	return st.Funded.Fee.Div(decimal.NewFromInt(int64(wireSize))).Mul(oneThousand)
}

// Broadcast submits the signed transaction via sendrawtransaction.
func (st *SignedTransaction) Broadcast(ctx context.Context, daemon DaemonClient) error {
	if st.State != StateSigned {
		return walleterr.New(walleterr.InvalidTransactionOutputType, "cannot broadcast a transaction that isn't signed")
	}
	txid, err := daemon.BroadcastRawTransaction(ctx, st.RawHex)
	if err != nil {
		st.State = StateFailed
		st.Kind = walleterr.Of(err)
		return err
	}
	if st.LocalTxID != "" && txid != st.LocalTxID {
		st.State = StateFailed
		st.Kind = walleterr.InvalidTransactionOutputType
		return walleterr.Newf(walleterr.InvalidTransactionOutputType,
			"daemon-reported txid %s does not match locally computed txid %s", txid, st.LocalTxID)
	}
	st.TxID = txid
	st.State = StateBroadcast
	return nil
}

// WaitUntilSeen polls the indexer DB for up to 10 seconds, yielding at
// least 1 second between retries, until it reports the txid as known.
func (st *SignedTransaction) WaitUntilSeen(ctx context.Context, observer TxObserver) error {
	if st.State != StateBroadcast {
		return walleterr.New(walleterr.TransactionNotSeen, "transaction has not been broadcast")
	}
	deadline := time.Now().Add(seenPollTimeout)
	for {
		seen, err := observer.HasTransaction(ctx, st.TxID)
		if err == nil && seen {
			st.State = StateSeen
			return nil
		}
		if time.Now().After(deadline) {
			st.State = StateFailed
			st.Kind = walleterr.TransactionNotSeen
			return walleterr.Newf(walleterr.TransactionNotSeen, "txid %s not observed within wait window", st.TxID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(seenPollInterval):
		}
	}
}
