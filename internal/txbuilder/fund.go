package txbuilder

import (
	"sort"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/shopspring/decimal"
)

// FundedTx is the result of a successful funding pass: the
// transaction with its inputs and (optional) change output, plus the
// fee actually paid and the fee rate that was used.
type FundedTx struct {
	Tx          *Tx
	HasChange   bool
	Fee         decimal.Decimal
	FeeRate     decimal.Decimal
	RequiredFee decimal.Decimal
}

// two is used for the trim-pass "amount*2 < fee_mismatch" test.
var two = decimal.NewFromInt(2)

// FundTransaction implements the funding algorithm of spec.md §4.3.4:
// given a candidate UTXO set and a transaction whose destination
// outputs are already set, select a subset of inputs (optionally
// adding a change output back to returnPubKeyHash/returnType) such
// that the result is fee-sane.
func FundTransaction(c *coin.Coin, candidates []UTXO, destOutputs []Output, subsidized bool, returnPubKeyHash []byte, returnType coin.TxOutType) (*FundedTx, error) {
	feeRate := FeeRate(c, subsidized)

	tx := &Tx{Outputs: append([]Output(nil), destOutputs...)}
	totalOut := tx.TotalOut()

	// Step 1: include everything; if we're still under-funded even
	// with every candidate, there's no point trying a subset.
	tx.Inputs = append([]UTXO(nil), candidates...)
	allInFee := RequiredFee(tx.EstimatedSize(), feeRate)
	if tx.TotalIn().LessThan(totalOut.Add(allInFee)) {
		return nil, walleterr.New(walleterr.NotEnoughCoinsException, "candidate UTXOs cannot cover outputs plus fee")
	}

	// Step 2: sort ascending, re-add until funded.
	sorted := append([]UTXO(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount.LessThan(sorted[j].Amount) })

	tx.Inputs = nil
	var requiredFee decimal.Decimal
	for _, u := range sorted {
		tx.Inputs = append(tx.Inputs, u)
		requiredFee = RequiredFee(tx.EstimatedSize(), feeRate)
		in := tx.TotalIn()
		noChangeFunded := in.GreaterThanOrEqual(totalOut.Add(requiredFee)) && in.LessThanOrEqual(totalOut.Add(requiredFee.Mul(two)))
		withChangeFunded := in.GreaterThanOrEqual(totalOut.Add(requiredFee).Add(DustLimit))
		if noChangeFunded || withChangeFunded {
			break
		}
	}

	// Step 3: reverse so largest-added-last comes first, then a
	// single trim attempt.
	reversed := make([]UTXO, len(tx.Inputs))
	for i, u := range tx.Inputs {
		reversed[len(tx.Inputs)-1-i] = u
	}
	currentFee := CurrentFee(tx.TotalIn(), totalOut)
	feeMismatch := currentFee.Sub(requiredFee)
	for i, u := range reversed {
		if u.Amount.GreaterThan(DustLimit) && (u.Amount.Mul(two).LessThan(feeMismatch) || u.Amount.Add(decimal.NewFromInt(1)).LessThan(feeMismatch)) {
			trimmed := make([]UTXO, 0, len(reversed)-1)
			trimmed = append(trimmed, reversed[:i]...)
			trimmed = append(trimmed, reversed[i+1:]...)
			tx.Inputs = trimmed
			break
		}
	}

	requiredFee = RequiredFee(tx.EstimatedSize(), feeRate)
	currentFee = CurrentFee(tx.TotalIn(), totalOut)

	result := &FundedTx{Tx: tx, FeeRate: feeRate}

	// Step 4: add change if the overshoot is worth collecting.
	if currentFee.Sub(requiredFee).GreaterThan(DustLimit) {
		// The change output's own bytes raise the required fee, so size
		// the transaction with it in place (an amount is always 8 bytes)
		// before settling the change amount.
		tx.Outputs = append(tx.Outputs, Output{PubKeyHash: returnPubKeyHash, ScriptType: returnType, Amount: decimal.Zero})
		requiredFee = RequiredFee(tx.EstimatedSize(), feeRate)
		tx.Outputs[len(tx.Outputs)-1].Amount = tx.TotalIn().Sub(totalOut).Sub(requiredFee)
		currentFee = CurrentFee(tx.TotalIn(), tx.TotalOut())
		if !FeeIsSane(currentFee, requiredFee) {
			return nil, walleterr.New(walleterr.FeeCalculationError, "fee is not sane after adding change output")
		}
		result.HasChange = true
	}

	result.Fee = currentFee
	result.RequiredFee = requiredFee
	return result, nil
}
