package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// MaxConsolidationUTXOs bounds a single consolidation transaction's
// input count (spec §4.4.4).
const MaxConsolidationUTXOs = 650

// MinConsolidationUTXOs is the per-address unspent-output count that
// makes an address eligible for the background processor's
// consolidation pass (spec §4.5).
const MinConsolidationUTXOs = 100

// ConsolidateAccount implements spec §4.4.4: collapse up to
// MaxConsolidationUTXOs of an account's mature, confirmed, non-mempool
// UTXOs on ticker into a single output back to its own address, and
// broadcast immediately. subsidized controls the fee rate; the
// background processor always passes true (spec §4.5 pass 1).
func (c *Core) ConsolidateAccount(ctx context.Context, account *store.Account, ticker string, subsidized bool) (*txbuilder.SignedTransaction, error) {
	co, err := c.coinFor(ticker)
	if err != nil {
		return nil, err
	}

	rows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeDefault, MaxConsolidationUTXOs)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "no mature confirmed UTXOs to consolidate")
	}

	tx := &txbuilder.Tx{Inputs: asCandidates(rows, account.PubKeyHash)}
	feeRate := txbuilder.FeeRate(co, subsidized)

	// The output script size doesn't vary with amount, so the estimate
	// taken with a placeholder amount already matches the final size.
	tx.Outputs = []txbuilder.Output{{PubKeyHash: account.PubKeyHash, ScriptType: coin.P2PKH, Amount: tx.TotalIn()}}
	requiredFee := txbuilder.RequiredFee(tx.EstimatedSize(), feeRate)
	changeAmount := tx.TotalIn().Sub(requiredFee)
	if !changeAmount.IsPositive() {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "consolidated amount does not cover the fee")
	}
	tx.Outputs[0].Amount = changeAmount

	currentFee := txbuilder.CurrentFee(tx.TotalIn(), tx.TotalOut())
	if !txbuilder.FeeIsSane(currentFee, requiredFee) {
		return nil, walleterr.New(walleterr.FeeCalculationError, "consolidation fee is not sane")
	}

	funded := &txbuilder.FundedTx{Tx: tx, HasChange: true, Fee: currentFee, FeeRate: feeRate, RequiredFee: requiredFee}
	return c.signAndBroadcast(ctx, account, ticker, funded)
}
