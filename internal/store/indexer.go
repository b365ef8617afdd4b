package store

import (
	"context"
	"database/sql"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/shopspring/decimal"
)

// IndexerDB is one chain's read-mostly blockchain index: the
// Address/Block/Transaction/TransactionOutput/TransactionInput/
// CoinbaseInfo relations of spec §6, backed by SQLite. The wallet
// core depends only on this type's exported methods, never on the
// schema directly, so a production indexer could implement the same
// surface against a different store.
type IndexerDB struct {
	*DB
}

// UTXORow is one unspent-output candidate as seen by the UTXO query
// of spec §4.4.1.
type UTXORow struct {
	OutputID  int64
	TxID      string
	Vout      uint32
	Amount    decimal.Decimal
	AddressID int64
	TxOutType coin.TxOutType
}

// UTXOMode selects which of spec §4.4.1's three confirmation/
// doublespend filter combinations applies.
type UTXOMode int

const (
	// ModeDefault requires the owning transaction's confirmation to
	// be set and implicitly excludes doublespends.
	ModeDefault UTXOMode = iota
	// ModeIncludeUnconfirmed accepts any confirmation state but still
	// excludes doublespends.
	ModeIncludeUnconfirmed
	// ModeIncludeUnconfirmedAndImmature additionally accepts immature
	// coinbase outputs, checking doublespends_id IS NULL explicitly
	// (same net effect as the other two modes).
	ModeIncludeUnconfirmedAndImmature
)

// CoinbaseMaturityWindow is the number of confirmations a coinbase
// output needs past the tip before it is spendable (spec §4.4.1:
// "block height ≤ tip − 100").
const CoinbaseMaturityWindow = 100

// SpendableUTXOs implements spec §4.4.1's UTXO query: output rows
// under addressIDs with spent_by_id null, not referenced by any
// mempool (unconfirmed) input, filtered by mode, capped at maxUTXOs
// ordered by output id ascending.
func (idx *IndexerDB) SpendableUTXOs(ctx context.Context, addressIDs []int64, mode UTXOMode, tipHeight int64, maxUTXOs int) ([]*UTXORow, error) {
	if len(addressIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(addressIDs)*2)
	args := make([]interface{}, 0, len(addressIDs)+2)
	for i, id := range addressIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}

	query := `
		SELECT tout.id, t.txid, tout.idx, tout.amount, tout.address_id, tout.type_id
		FROM transaction_outputs tout
		JOIN transactions t ON t.id = tout.transaction_id
		LEFT JOIN coinbase_info ci ON ci.transaction_id = t.id
		LEFT JOIN blocks b ON b.id = ci.block_id
		WHERE tout.address_id IN (` + string(placeholders) + `)
		  AND tout.spent_by_id IS NULL
		  AND t.doublespends_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM transaction_inputs ti
			JOIN transactions t2 ON t2.id = ti.transaction_id
			WHERE ti.output_id = tout.id AND t2.confirmation IS NULL
		  )
	`
	if mode == ModeDefault {
		query += ` AND t.confirmation IS NOT NULL`
	}
	if mode != ModeIncludeUnconfirmedAndImmature {
		query += ` AND (ci.transaction_id IS NULL OR b.height <= ?)`
		args = append(args, tipHeight-CoinbaseMaturityWindow)
	}
	query += ` ORDER BY tout.id ASC`
	if maxUTXOs > 0 {
		query += ` LIMIT ?`
		args = append(args, maxUTXOs)
	}

	rows, err := idx.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*UTXORow
	for rows.Next() {
		var r UTXORow
		var amount, typeID string
		if err := rows.Scan(&r.OutputID, &r.TxID, &r.Vout, &amount, &r.AddressID, &typeID); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		r.Amount = dec
		r.TxOutType = coin.TxOutType(typeID)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// UnspentCountByAddress counts one address's mature, confirmed,
// non-mempool-referenced unspent outputs — the same filter as
// ModeDefault — the measure the background processor's consolidation
// pass (spec §4.5) compares against MinConsolidationUTXOs.
func (idx *IndexerDB) UnspentCountByAddress(ctx context.Context, addressID int64, tipHeight int64) (int, error) {
	var count int
	err := idx.conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transaction_outputs tout
		JOIN transactions t ON t.id = tout.transaction_id
		LEFT JOIN coinbase_info ci ON ci.transaction_id = t.id
		LEFT JOIN blocks b ON b.id = ci.block_id
		WHERE tout.address_id = ?
		  AND tout.spent_by_id IS NULL
		  AND t.doublespends_id IS NULL
		  AND t.confirmation IS NOT NULL
		  AND (ci.transaction_id IS NULL OR b.height <= ?)
		  AND NOT EXISTS (
			SELECT 1 FROM transaction_inputs ti
			JOIN transactions t2 ON t2.id = ti.transaction_id
			WHERE ti.output_id = tout.id AND t2.confirmation IS NULL
		  )`, addressID, tipHeight-CoinbaseMaturityWindow).Scan(&count)
	return count, err
}

// ImportAddress returns the id of the Address row for address,
// creating one if it doesn't exist yet — the indexer-import step of
// account create/import (spec §4.4.2).
func (idx *IndexerDB) ImportAddress(ctx context.Context, address string) (int64, error) {
	if _, err := idx.conn.ExecContext(ctx, `INSERT OR IGNORE INTO addresses (address) VALUES (?)`, address); err != nil {
		return 0, err
	}
	var id int64
	err := idx.conn.QueryRowContext(ctx, `SELECT id FROM addresses WHERE address = ?`, address).Scan(&id)
	return id, err
}

// TipBlock returns the highest-height block this indexer knows, used
// by the background processor's per-coin trigger (spec §4.5).
func (idx *IndexerDB) TipBlock(ctx context.Context) (height int64, hash string, err error) {
	err = idx.conn.QueryRowContext(ctx, `SELECT height, hash FROM blocks ORDER BY height DESC LIMIT 1`).Scan(&height, &hash)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	return height, hash, err
}

// HasTransaction implements internal/txbuilder.TxObserver: whether
// the indexer has recorded a row for a txid yet.
func (idx *IndexerDB) HasTransaction(ctx context.Context, txid string) (bool, error) {
	var exists int
	err := idx.conn.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE txid = ?`, txid).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
