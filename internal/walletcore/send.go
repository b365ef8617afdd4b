package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
	"github.com/shopspring/decimal"
)

// Priority mirrors the HTTP surface's {low, normal, high} send
// priority; only "low" has operational meaning here.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// IsLow reports whether this priority requests a subsidized fee rate.
// Spec §9 flags the source's `low_priority` property as evaluating
// this comparison without ever using its result in one variant; this
// implementation uses the boolean everywhere it matters instead of
// reproducing that dead check.
func (p Priority) IsLow() bool {
	return p == PriorityLow
}

// SendRequest is the core's view of the HTTP surface's
// `POST /accounts/{u}/send/` body (spec §6).
type SendRequest struct {
	Coin        string
	Amount      decimal.Decimal
	Priority    Priority
	Destination Destination
	// IncludeUnconfirmed allows unconfirmed UTXOs as funding
	// candidates; spec §4.4.3 leaves this caller-controlled.
	IncludeUnconfirmed bool
}

// SendPayment implements spec §4.4.3: build an unsigned transaction
// with one destination output, fund it from the account's UTXOs under
// the process-wide tx-create lock, sign, and broadcast.
func (c *Core) SendPayment(ctx context.Context, managerID string, account *store.Account, req SendRequest) (*txbuilder.SignedTransaction, error) {
	c.txLock.Lock()
	defer c.txLock.Unlock()

	co, err := c.coinFor(req.Coin)
	if err != nil {
		return nil, err
	}

	destHash, destType, err := c.resolve(ctx, managerID, req.Destination, req.Coin)
	if err != nil {
		return nil, err
	}

	mode := store.ModeDefault
	if req.IncludeUnconfirmed {
		mode = store.ModeIncludeUnconfirmed
	}
	rows, err := c.spendableUTXOs(ctx, account, req.Coin, mode, 0)
	if err != nil {
		return nil, err
	}
	candidates := asCandidates(rows, account.PubKeyHash)

	destOutput := txbuilder.Output{PubKeyHash: destHash, ScriptType: destType, Amount: req.Amount}
	funded, err := txbuilder.FundTransaction(co, candidates, []txbuilder.Output{destOutput}, req.Priority.IsLow(), account.PubKeyHash, coin.P2PKH)
	if err != nil {
		return nil, err
	}

	return c.signAndBroadcast(ctx, account, req.Coin, funded)
}
