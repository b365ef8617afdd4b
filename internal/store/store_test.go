package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klingon-exchange/custodial-wallet/internal/auth"
	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/shopspring/decimal"
)

func tempWalletDB(t *testing.T) *WalletDB {
	t.Helper()
	dir, err := os.MkdirTemp("", "walletdb-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := OpenWalletDB(filepath.Join(dir, "wallet.db"))
	if err != nil {
		t.Fatalf("OpenWalletDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tempIndexerDB(t *testing.T) *IndexerDB {
	t.Helper()
	dir, err := os.MkdirTemp("", "indexerdb-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := OpenIndexerDB(filepath.Join(dir, "btc.db"))
	if err != nil {
		t.Fatalf("OpenIndexerDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManagerCreateAndLookupByTokenHash(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()

	hash := auth.HashToken([]byte("a-64-byte-raw-bearer-token-padded-out-to-the-right-length-here!!"))
	m, err := db.CreateManager(ctx, "acme", hash)
	if err != nil {
		t.Fatalf("CreateManager: %v", err)
	}

	found, err := db.ManagerByTokenHash(ctx, hash)
	if err != nil {
		t.Fatalf("ManagerByTokenHash: %v", err)
	}
	if found == nil || found.ID != m.ID {
		t.Fatalf("expected to find manager %s, got %+v", m.ID, found)
	}

	if found, err := db.ManagerByTokenHash(ctx, auth.HashToken([]byte("wrong"))); err != nil || found != nil {
		t.Fatalf("expected no match for a different token, got %+v err=%v", found, err)
	}
}

func TestAccountUniquePerManager(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))

	if _, err := db.CreateAccount(ctx, mgr.ID, "alice", make([]byte, 16), make([]byte, 32), make([]byte, 20)); err != nil {
		t.Fatalf("first CreateAccount: %v", err)
	}
	if _, err := db.CreateAccount(ctx, mgr.ID, "alice", make([]byte, 16), make([]byte, 32), make([]byte, 20)); err == nil {
		t.Fatal("expected AccountExistsException on duplicate (manager_id, user)")
	}

	other, _ := db.CreateManager(ctx, "other", auth.HashToken([]byte("t2")))
	if _, err := db.CreateAccount(ctx, other.ID, "alice", make([]byte, 16), make([]byte, 32), make([]byte, 20)); err != nil {
		t.Fatalf("same user name under a different manager should succeed: %v", err)
	}
}

func TestAccountNameValidation(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))

	longName := make([]byte, 65)
	for i := range longName {
		longName[i] = 'a'
	}
	if _, err := db.CreateAccount(ctx, mgr.ID, string(longName), make([]byte, 16), make([]byte, 32), make([]byte, 20)); err == nil {
		t.Fatal("expected InvalidAccountName for a 65-byte name")
	}
}

func TestAccountAddressesRoundTrip(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))
	acct, _ := db.CreateAccount(ctx, mgr.ID, "bob", make([]byte, 16), make([]byte, 32), make([]byte, 20))

	if _, err := db.AddAccountAddress(ctx, acct.ID, "BTC", 101); err != nil {
		t.Fatalf("AddAccountAddress legacy: %v", err)
	}
	if _, err := db.AddAccountAddress(ctx, acct.ID, "BTC", 102); err != nil {
		t.Fatalf("AddAccountAddress segwit: %v", err)
	}

	rows, err := db.AccountAddressesByCoin(ctx, acct.ID, "BTC")
	if err != nil {
		t.Fatalf("AccountAddressesByCoin: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both the legacy and segwit rows, got %d", len(rows))
	}
}

func TestAutomaticPaymentIntervalClamping(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))
	acct, _ := db.CreateAccount(ctx, mgr.ID, "carol", make([]byte, 16), make([]byte, 32), make([]byte, 20))

	p, err := db.CreateAutomaticPayment(ctx, acct.ID, "BTC", make([]byte, 20), coin.P2PKH, decimal.RequireFromString("1.5"), 0, time.Now().Unix()+3600)
	if err != nil {
		t.Fatalf("CreateAutomaticPayment: %v", err)
	}
	if p.Interval != IntervalMin {
		t.Fatalf("expected interval 0 clamped up to %d, got %d", IntervalMin, p.Interval)
	}

	p2, err := db.CreateAutomaticPayment(ctx, acct.ID, "BTC", make([]byte, 20), coin.P2PKH, decimal.RequireFromString("-3"), 999_999_999_999, time.Now().Unix())
	if err != nil {
		t.Fatalf("CreateAutomaticPayment: %v", err)
	}
	if p2.Interval != IntervalMax {
		t.Fatalf("expected an oversized interval clamped down to %d, got %d", IntervalMax, p2.Interval)
	}
	if !p2.IsZeroBalance() {
		t.Fatal("expected a non-positive amount to be classified zero-balance")
	}
	if !p2.AmountToKeep().Equal(decimal.RequireFromString("3")) {
		t.Fatalf("expected amount-to-keep 3, got %s", p2.AmountToKeep())
	}
}

func TestDueAutomaticPaymentsAndAdvance(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))
	acct, _ := db.CreateAccount(ctx, mgr.ID, "dave", make([]byte, 16), make([]byte, 32), make([]byte, 20))

	now := time.Now().Unix()
	due, _ := db.CreateAutomaticPayment(ctx, acct.ID, "BTC", make([]byte, 20), coin.P2PKH, decimal.RequireFromString("1"), 3600, now-10)
	_, _ = db.CreateAutomaticPayment(ctx, acct.ID, "BTC", make([]byte, 20), coin.P2PKH, decimal.RequireFromString("1"), 3600, now+3600)

	rows, err := db.DueAutomaticPayments(ctx, "BTC", now)
	if err != nil {
		t.Fatalf("DueAutomaticPayments: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != due.ID {
		t.Fatalf("expected exactly the overdue rule, got %d rows", len(rows))
	}

	if err := db.AdvanceNextPayment(ctx, due, now); err != nil {
		t.Fatalf("AdvanceNextPayment: %v", err)
	}
	if due.NextPayment <= now {
		t.Fatalf("expected nextpayment strictly in the future, got %d vs now=%d", due.NextPayment, now)
	}
}

func TestReplaceAutomaticPaymentsForCoin(t *testing.T) {
	db := tempWalletDB(t)
	ctx := context.Background()
	mgr, _ := db.CreateManager(ctx, "acme", auth.HashToken([]byte("t1")))
	acct, _ := db.CreateAccount(ctx, mgr.ID, "erin", make([]byte, 16), make([]byte, 32), make([]byte, 20))

	db.CreateAutomaticPayment(ctx, acct.ID, "BTC", make([]byte, 20), coin.P2PKH, decimal.RequireFromString("1"), 3600, time.Now().Unix())

	replacement := []*AutomaticPayment{
		{PubKeyHash: make([]byte, 20), TxOutType: coin.P2WPKH, Amount: decimal.RequireFromString("2"), Interval: 7200, NextPayment: time.Now().Unix()},
	}
	if err := db.ReplaceAutomaticPaymentsForCoin(ctx, acct.ID, "BTC", replacement); err != nil {
		t.Fatalf("ReplaceAutomaticPaymentsForCoin: %v", err)
	}

	rows, err := db.AutomaticPaymentsByAccountAndCoin(ctx, acct.ID, "BTC")
	if err != nil {
		t.Fatalf("AutomaticPaymentsByAccountAndCoin: %v", err)
	}
	if len(rows) != 1 || !rows[0].Amount.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("expected the PUT to fully replace the rule set, got %+v", rows)
	}
}

func seedUTXOFixture(t *testing.T, idx *IndexerDB, confirmed bool, coinbaseHeight int64, tipHeight int64) (outputID int64) {
	t.Helper()
	ctx := context.Background()
	conn := idx.Conn()

	addrID, err := idx.ImportAddress(ctx, "1TestAddress")
	if err != nil {
		t.Fatalf("ImportAddress: %v", err)
	}

	var confirmation interface{}
	if confirmed {
		confirmation = tipHeight
	}
	res, err := conn.ExecContext(ctx, `INSERT INTO transactions (txid, confirmation) VALUES (?, ?)`, "tx1", confirmation)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	txID, _ := res.LastInsertId()

	if coinbaseHeight >= 0 {
		blockRes, err := conn.ExecContext(ctx, `INSERT INTO blocks (height, hash) VALUES (?, ?)`, coinbaseHeight, "blockhash1")
		if err != nil {
			t.Fatalf("insert block: %v", err)
		}
		blockID, _ := blockRes.LastInsertId()
		if _, err := conn.ExecContext(ctx, `INSERT INTO coinbase_info (transaction_id, block_id) VALUES (?, ?)`, txID, blockID); err != nil {
			t.Fatalf("insert coinbase_info: %v", err)
		}
	}

	outRes, err := conn.ExecContext(ctx, `INSERT INTO transaction_outputs (transaction_id, address_id, idx, type_id, amount) VALUES (?, ?, 0, 'P2PKH', '1.0')`, txID, addrID)
	if err != nil {
		t.Fatalf("insert transaction_output: %v", err)
	}
	outputID, _ = outRes.LastInsertId()
	return outputID
}

func TestSpendableUTXOsDefaultModeRequiresConfirmation(t *testing.T) {
	idx := tempIndexerDB(t)
	seedUTXOFixture(t, idx, false, -1, 1000)

	addrID, _ := idx.ImportAddress(context.Background(), "1TestAddress")
	rows, err := idx.SpendableUTXOs(context.Background(), []int64{addrID}, ModeDefault, 1000, 0)
	if err != nil {
		t.Fatalf("SpendableUTXOs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected an unconfirmed output to be excluded by default mode, got %d rows", len(rows))
	}

	rows, err = idx.SpendableUTXOs(context.Background(), []int64{addrID}, ModeIncludeUnconfirmed, 1000, 0)
	if err != nil {
		t.Fatalf("SpendableUTXOs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected ModeIncludeUnconfirmed to surface the unconfirmed output, got %d rows", len(rows))
	}
}

func TestSpendableUTXOsExcludesImmatureCoinbase(t *testing.T) {
	idx := tempIndexerDB(t)
	tip := int64(1000)
	seedUTXOFixture(t, idx, true, tip-5, tip) // coinbase only 5 confirmations deep

	addrID, _ := idx.ImportAddress(context.Background(), "1TestAddress")
	rows, err := idx.SpendableUTXOs(context.Background(), []int64{addrID}, ModeDefault, tip, 0)
	if err != nil {
		t.Fatalf("SpendableUTXOs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected the immature coinbase output to be excluded, got %d rows", len(rows))
	}

	rows, err = idx.SpendableUTXOs(context.Background(), []int64{addrID}, ModeIncludeUnconfirmedAndImmature, tip, 0)
	if err != nil {
		t.Fatalf("SpendableUTXOs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected ModeIncludeUnconfirmedAndImmature to surface the immature output, got %d rows", len(rows))
	}
}

func TestSpendableUTXOsExcludesMempoolReferenced(t *testing.T) {
	idx := tempIndexerDB(t)
	ctx := context.Background()
	tip := int64(1000)
	outputID := seedUTXOFixture(t, idx, true, tip-200, tip)
	addrID, _ := idx.ImportAddress(ctx, "1TestAddress")

	conn := idx.Conn()
	res, err := conn.ExecContext(ctx, `INSERT INTO transactions (txid, confirmation) VALUES (?, NULL)`, "mempool-spend")
	if err != nil {
		t.Fatalf("insert mempool tx: %v", err)
	}
	spendTxID, _ := res.LastInsertId()
	if _, err := conn.ExecContext(ctx, `INSERT INTO transaction_inputs (transaction_id, output_id) VALUES (?, ?)`, spendTxID, outputID); err != nil {
		t.Fatalf("insert transaction_input: %v", err)
	}

	rows, err := idx.SpendableUTXOs(ctx, []int64{addrID}, ModeIncludeUnconfirmedAndImmature, tip, 0)
	if err != nil {
		t.Fatalf("SpendableUTXOs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected the mempool-referenced output to be excluded even in the most permissive mode, got %d rows", len(rows))
	}
}

func TestHasTransactionAndTipBlock(t *testing.T) {
	idx := tempIndexerDB(t)
	ctx := context.Background()
	conn := idx.Conn()

	if seen, err := idx.HasTransaction(ctx, "nonexistent"); err != nil || seen {
		t.Fatalf("expected no match, got seen=%v err=%v", seen, err)
	}

	conn.ExecContext(ctx, `INSERT INTO transactions (txid, confirmation) VALUES (?, ?)`, "abc123", 10)
	if seen, err := idx.HasTransaction(ctx, "abc123"); err != nil || !seen {
		t.Fatalf("expected to find abc123, got seen=%v err=%v", seen, err)
	}

	conn.ExecContext(ctx, `INSERT INTO blocks (height, hash) VALUES (100, 'h100')`)
	conn.ExecContext(ctx, `INSERT INTO blocks (height, hash) VALUES (200, 'h200')`)
	height, hash, err := idx.TipBlock(ctx)
	if err != nil {
		t.Fatalf("TipBlock: %v", err)
	}
	if height != 200 || hash != "h200" {
		t.Fatalf("expected tip (200, h200), got (%d, %s)", height, hash)
	}
}
