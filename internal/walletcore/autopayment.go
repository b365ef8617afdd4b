package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/shopspring/decimal"
)

// RunAutomaticPayment executes one due AutomaticPayment row per spec
// §4.4.5: standard payments pay exactly Amount; zero-balance payments
// sweep the account, optionally keeping a reserve above the immature
// balance. The caller is expected to persist the row's advanced
// NextPayment (store.WalletDB.AdvanceNextPayment) after this returns,
// whether or not it errored — per spec §4.5 pass 2, a failed
// autopayment still advances so it doesn't retry every tick.
func (c *Core) RunAutomaticPayment(ctx context.Context, account *store.Account, payment *store.AutomaticPayment) (*txbuilder.SignedTransaction, error) {
	if payment.IsZeroBalance() {
		return c.runZeroBalancePayment(ctx, account, payment)
	}
	return c.runStandardPayment(ctx, account, payment)
}

func (c *Core) runStandardPayment(ctx context.Context, account *store.Account, payment *store.AutomaticPayment) (*txbuilder.SignedTransaction, error) {
	co, err := c.coinFor(payment.Coin)
	if err != nil {
		return nil, err
	}

	_, unconfirmed, _, err := c.Balance(ctx, account, payment.Coin)
	if err != nil {
		return nil, err
	}
	if !unconfirmed.GreaterThan(payment.Amount) {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "balance does not exceed the standard autopayment amount")
	}

	rows, err := c.spendableUTXOs(ctx, account, payment.Coin, store.ModeIncludeUnconfirmed, 0)
	if err != nil {
		return nil, err
	}
	candidates := asCandidates(rows, account.PubKeyHash)

	destOutput := txbuilder.Output{PubKeyHash: payment.PubKeyHash, ScriptType: payment.TxOutType, Amount: payment.Amount}
	funded, err := txbuilder.FundTransaction(co, candidates, []txbuilder.Output{destOutput}, false, account.PubKeyHash, coin.P2PKH)
	if err != nil {
		return nil, err
	}
	return c.signAndBroadcast(ctx, account, payment.Coin, funded)
}

func (c *Core) runZeroBalancePayment(ctx context.Context, account *store.Account, payment *store.AutomaticPayment) (*txbuilder.SignedTransaction, error) {
	co, err := c.coinFor(payment.Coin)
	if err != nil {
		return nil, err
	}

	keep := payment.AmountToKeep()

	balance, _, immature, err := c.balanceForSweep(ctx, account, payment.Coin)
	if err != nil {
		return nil, err
	}

	if keep.IsZero() {
		return c.sweepAll(ctx, account, payment.Coin, co, payment.PubKeyHash, payment.TxOutType, false)
	}

	// keep' = max(0, keep + balance - immature): only the mature
	// portion above the immature reserve is kept back.
	adjustedKeep := keep.Add(balance).Sub(immature)
	if adjustedKeep.IsNegative() {
		adjustedKeep = decimal.Zero
	}
	if adjustedKeep.GreaterThan(balance) {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "kept amount exceeds the mature spendable balance")
	}

	return c.sweepWithChange(ctx, account, payment.Coin, co, payment.PubKeyHash, payment.TxOutType, adjustedKeep)
}

// balanceForSweep returns the conf+unconf spendable balance and the
// conf+unconf+immature balance, the two quantities spec §4.4.5's
// keep-adjustment formula compares.
func (c *Core) balanceForSweep(ctx context.Context, account *store.Account, ticker string) (balance, confirmed, immature decimal.Decimal, err error) {
	confirmed, unconfirmed, immatureTotal, err := c.Balance(ctx, account, ticker)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return unconfirmed, confirmed, immatureTotal, nil
}

// sweepAll spends every spendable UTXO into a single destination
// output (the zero-balance, keep=0 path).
func (c *Core) sweepAll(ctx context.Context, account *store.Account, ticker string, co *coin.Coin, destHash []byte, destType coin.TxOutType, subsidized bool) (*txbuilder.SignedTransaction, error) {
	rows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeIncludeUnconfirmed, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "no UTXOs to sweep")
	}
	tx := &txbuilder.Tx{Inputs: asCandidates(rows, account.PubKeyHash)}
	feeRate := txbuilder.FeeRate(co, subsidized)

	tx.Outputs = []txbuilder.Output{{PubKeyHash: destHash, ScriptType: destType, Amount: tx.TotalIn()}}
	requiredFee := txbuilder.RequiredFee(tx.EstimatedSize(), feeRate)
	destAmount := tx.TotalIn().Sub(requiredFee)
	if !destAmount.IsPositive() {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "swept amount does not cover the fee")
	}
	tx.Outputs[0].Amount = destAmount

	currentFee := txbuilder.CurrentFee(tx.TotalIn(), tx.TotalOut())
	if !txbuilder.FeeIsSane(currentFee, requiredFee) {
		return nil, walleterr.New(walleterr.FeeCalculationError, "sweep fee is not sane")
	}

	funded := &txbuilder.FundedTx{Tx: tx, HasChange: false, Fee: currentFee, FeeRate: feeRate, RequiredFee: requiredFee}
	return c.signAndBroadcast(ctx, account, ticker, funded)
}

// sweepWithChange spends every spendable UTXO, keeping keepAmount back
// on a change output to the account's own address and sending the
// remainder to the destination (the zero-balance, keep>0 path).
func (c *Core) sweepWithChange(ctx context.Context, account *store.Account, ticker string, co *coin.Coin, destHash []byte, destType coin.TxOutType, keepAmount decimal.Decimal) (*txbuilder.SignedTransaction, error) {
	rows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeIncludeUnconfirmed, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "no UTXOs to sweep")
	}
	tx := &txbuilder.Tx{Inputs: asCandidates(rows, account.PubKeyHash)}
	feeRate := txbuilder.FeeRate(co, false)

	tx.Outputs = []txbuilder.Output{
		{PubKeyHash: account.PubKeyHash, ScriptType: coin.P2PKH, Amount: keepAmount},
		{PubKeyHash: destHash, ScriptType: destType, Amount: tx.TotalIn().Sub(keepAmount)},
	}
	requiredFee := txbuilder.RequiredFee(tx.EstimatedSize(), feeRate)
	destAmount := tx.TotalIn().Sub(keepAmount).Sub(requiredFee)
	if !destAmount.IsPositive() {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "remainder after keeping the reserve does not cover the fee")
	}
	tx.Outputs[1].Amount = destAmount

	currentFee := txbuilder.CurrentFee(tx.TotalIn(), tx.TotalOut())
	if !txbuilder.FeeIsSane(currentFee, requiredFee) {
		return nil, walleterr.New(walleterr.FeeCalculationError, "sweep-with-change fee is not sane")
	}

	funded := &txbuilder.FundedTx{Tx: tx, HasChange: true, Fee: currentFee, FeeRate: feeRate, RequiredFee: requiredFee}
	return c.signAndBroadcast(ctx, account, ticker, funded)
}
