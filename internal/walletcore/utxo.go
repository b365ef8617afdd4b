package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
	"github.com/shopspring/decimal"
)

// addressIDsForAccount collects the indexer address ids an account is
// bound to on one chain, the universe UTXO queries and the
// consolidation pass draw from.
func (c *Core) addressIDsForAccount(ctx context.Context, accountID, ticker string) ([]int64, error) {
	rows, err := c.Wallet.AccountAddressesByCoin(ctx, accountID, ticker)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.AddressID
	}
	return ids, nil
}

// spendableUTXOs resolves an account's indexer addresses on ticker and
// runs the UTXO query of spec §4.4.1, returning both the raw rows (for
// balance sums) and their txbuilder.UTXO form (for funding).
func (c *Core) spendableUTXOs(ctx context.Context, account *store.Account, ticker string, mode store.UTXOMode, maxUTXOs int) ([]*store.UTXORow, error) {
	idx, err := c.indexerFor(ticker)
	if err != nil {
		return nil, err
	}
	addressIDs, err := c.addressIDsForAccount(ctx, account.ID, ticker)
	if err != nil {
		return nil, err
	}
	tipHeight, _, err := idx.TipBlock(ctx)
	if err != nil {
		return nil, err
	}
	return idx.SpendableUTXOs(ctx, addressIDs, mode, tipHeight, maxUTXOs)
}

// asCandidates converts indexer UTXO rows into the funding engine's
// input representation.
func asCandidates(rows []*store.UTXORow, pubKeyHash []byte) []txbuilder.UTXO {
	out := make([]txbuilder.UTXO, len(rows))
	for i, r := range rows {
		out[i] = txbuilder.UTXO{
			TxID:       r.TxID,
			Vout:       r.Vout,
			Amount:     r.Amount,
			PubKeyHash: pubKeyHash,
			ScriptType: r.TxOutType,
		}
	}
	return out
}

func sumAmounts(rows []*store.UTXORow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// Balance reports an account's spendable balance on ticker under the
// three query modes of spec §4.4.1: confirmed-only, confirmed plus
// unconfirmed, and confirmed plus unconfirmed plus immature coinbase.
func (c *Core) Balance(ctx context.Context, account *store.Account, ticker string) (confirmed, unconfirmed, immature decimal.Decimal, err error) {
	confRows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeDefault, 0)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	unconfRows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeIncludeUnconfirmed, 0)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	immatureRows, err := c.spendableUTXOs(ctx, account, ticker, store.ModeIncludeUnconfirmedAndImmature, 0)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return sumAmounts(confRows), sumAmounts(unconfRows), sumAmounts(immatureRows), nil
}
