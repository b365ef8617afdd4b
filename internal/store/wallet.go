package store

import (
	"context"
	"database/sql"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
	"github.com/shopspring/decimal"
)

// WalletDB is the persistence surface for WalletManager, Account,
// AccountAddress, and AutomaticPayment (spec §3).
type WalletDB struct {
	*DB
}

// MaxUserLen is the UTF-8 byte length limit on Account.User.
const MaxUserLen = 64

const (
	// IntervalMin and IntervalMax bound AutomaticPayment.Interval,
	// seconds; out-of-range values (including 0) clamp up or down.
	IntervalMin = 60
	IntervalMax = 315_360_000
)

// ClampInterval enforces [IntervalMin, IntervalMax].
func ClampInterval(seconds int64) int64 {
	if seconds < IntervalMin {
		return IntervalMin
	}
	if seconds > IntervalMax {
		return IntervalMax
	}
	return seconds
}

// WalletManager is an API client identity (spec §3).
type WalletManager struct {
	ID        string
	Name      string
	TokenHash [32]byte
}

// CreateManager inserts a new manager, generating its id.
func (w *WalletDB) CreateManager(ctx context.Context, name string, tokenHash [32]byte) (*WalletManager, error) {
	m := &WalletManager{ID: uuid.NewString(), Name: name, TokenHash: tokenHash}
	_, err := w.conn.ExecContext(ctx,
		`INSERT INTO wallet_managers (id, name, token_hash) VALUES (?, ?, ?)`,
		m.ID, m.Name, m.TokenHash[:])
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ManagerByTokenHash looks up the manager owning a bearer token,
// returning (nil, nil) if none matches — callers turn that into
// AuthenticationError at the HTTP boundary.
func (w *WalletDB) ManagerByTokenHash(ctx context.Context, tokenHash [32]byte) (*WalletManager, error) {
	var m WalletManager
	var hash []byte
	err := w.conn.QueryRowContext(ctx,
		`SELECT id, name, token_hash FROM wallet_managers WHERE token_hash = ?`, tokenHash[:],
	).Scan(&m.ID, &m.Name, &hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	copy(m.TokenHash[:], hash)
	return &m, nil
}

// Account is a custodial user under a manager (spec §3).
type Account struct {
	ID           string
	ManagerID    string
	User         string
	IV           []byte
	EncryptedKey []byte
	PubKeyHash   []byte
}

// ValidateAccountName enforces the ≤64-byte UTF-8 constraint.
func ValidateAccountName(name string) error {
	if !utf8.ValidString(name) || len(name) == 0 || len(name) > MaxUserLen {
		return walleterr.Newf(walleterr.InvalidAccountName, "account name must be 1-%d UTF-8 bytes", MaxUserLen)
	}
	return nil
}

// AccountByManagerAndUser looks up an account by its unique
// (manager_id, user) key; (nil, nil) if absent.
func (w *WalletDB) AccountByManagerAndUser(ctx context.Context, managerID, user string) (*Account, error) {
	var a Account
	err := w.conn.QueryRowContext(ctx,
		`SELECT id, manager_id, user, iv, encrypted_key, pubkeyhash FROM accounts WHERE manager_id = ? AND user = ?`,
		managerID, user,
	).Scan(&a.ID, &a.ManagerID, &a.User, &a.IV, &a.EncryptedKey, &a.PubKeyHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountByID looks up an account by its primary key, used wherever a
// caller holds only an AccountID (AutomaticPayment.AccountID,
// AccountAddress.AccountID) and needs the full row.
func (w *WalletDB) AccountByID(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	err := w.conn.QueryRowContext(ctx,
		`SELECT id, manager_id, user, iv, encrypted_key, pubkeyhash FROM accounts WHERE id = ?`, accountID,
	).Scan(&a.ID, &a.ManagerID, &a.User, &a.IV, &a.EncryptedKey, &a.PubKeyHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns every account owned by a manager.
func (w *WalletDB) ListAccounts(ctx context.Context, managerID string) ([]*Account, error) {
	rows, err := w.conn.QueryContext(ctx,
		`SELECT id, manager_id, user, iv, encrypted_key, pubkeyhash FROM accounts WHERE manager_id = ?`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.ManagerID, &a.User, &a.IV, &a.EncryptedKey, &a.PubKeyHash); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateAccount inserts a new account, failing AccountExistsException
// if (manager_id, user) is already taken. The caller is expected to
// hold the account-creation lock (internal/walletcore) around the
// whole create-or-import flow this is one step of.
func (w *WalletDB) CreateAccount(ctx context.Context, managerID, user string, iv, encryptedKey, pubkeyHash []byte) (*Account, error) {
	if err := ValidateAccountName(user); err != nil {
		return nil, err
	}
	existing, err := w.AccountByManagerAndUser(ctx, managerID, user)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, walleterr.Newf(walleterr.AccountExistsException, "account %q already exists for this manager", user)
	}
	a := &Account{ID: uuid.NewString(), ManagerID: managerID, User: user, IV: iv, EncryptedKey: encryptedKey, PubKeyHash: pubkeyHash}
	_, err = w.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, manager_id, user, iv, encrypted_key, pubkeyhash) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ManagerID, a.User, a.IV, a.EncryptedKey, a.PubKeyHash)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account and its owned rows, cascading
// manually since SQLite foreign keys aren't enforced by default.
func (w *WalletDB) DeleteAccount(ctx context.Context, accountID string) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM automatic_payments WHERE account_id = ?`, accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM account_addresses WHERE account_id = ?`, accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		return err
	}
	return tx.Commit()
}

// AccountAddress binds an account to one indexer address row for one
// chain (spec §3).
type AccountAddress struct {
	ID        string
	AccountID string
	Coin      string
	AddressID int64
}

// AddAccountAddress inserts a new AccountAddress row.
func (w *WalletDB) AddAccountAddress(ctx context.Context, accountID, coinTicker string, addressID int64) (*AccountAddress, error) {
	aa := &AccountAddress{ID: uuid.NewString(), AccountID: accountID, Coin: coinTicker, AddressID: addressID}
	_, err := w.conn.ExecContext(ctx,
		`INSERT INTO account_addresses (id, account_id, coin, address_id) VALUES (?, ?, ?, ?)`,
		aa.ID, aa.AccountID, aa.Coin, aa.AddressID)
	if err != nil {
		return nil, err
	}
	return aa, nil
}

// AccountAddressesByCoin returns every AccountAddress row for an
// account on one chain (legacy and SegWit rows both included, per
// spec's "each get their own row" invariant).
func (w *WalletDB) AccountAddressesByCoin(ctx context.Context, accountID, coinTicker string) ([]*AccountAddress, error) {
	rows, err := w.conn.QueryContext(ctx,
		`SELECT id, account_id, coin, address_id FROM account_addresses WHERE account_id = ? AND coin = ?`,
		accountID, coinTicker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AccountAddress
	for rows.Next() {
		var aa AccountAddress
		if err := rows.Scan(&aa.ID, &aa.AccountID, &aa.Coin, &aa.AddressID); err != nil {
			return nil, err
		}
		out = append(out, &aa)
	}
	return out, rows.Err()
}

// AllAccountAddressesByCoin returns every AccountAddress row across
// every account for one chain, in no particular order — the universe
// the background processor's consolidation pass walks row by row.
func (w *WalletDB) AllAccountAddressesByCoin(ctx context.Context, coinTicker string) ([]*AccountAddress, error) {
	rows, err := w.conn.QueryContext(ctx,
		`SELECT id, account_id, coin, address_id FROM account_addresses WHERE coin = ?`, coinTicker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AccountAddress
	for rows.Next() {
		var aa AccountAddress
		if err := rows.Scan(&aa.ID, &aa.AccountID, &aa.Coin, &aa.AddressID); err != nil {
			return nil, err
		}
		out = append(out, &aa)
	}
	return out, rows.Err()
}

// AutomaticPayment is a recurring payment rule (spec §3, §4.4.5).
type AutomaticPayment struct {
	ID          string
	AccountID   string
	Coin        string
	PubKeyHash  []byte
	TxOutType   coin.TxOutType
	Amount      decimal.Decimal
	Interval    int64
	NextPayment int64 // unix seconds
}

// IsZeroBalance reports whether this rule is the zero-balance kind
// (amount <= 0) rather than standard (amount > 0), per spec §4.4.5.
func (p *AutomaticPayment) IsZeroBalance() bool {
	return !p.Amount.IsPositive()
}

// AmountToKeep is only meaningful when IsZeroBalance is true.
func (p *AutomaticPayment) AmountToKeep() decimal.Decimal {
	return p.Amount.Neg()
}

// CreateAutomaticPayment inserts a new rule, clamping Interval.
func (w *WalletDB) CreateAutomaticPayment(ctx context.Context, accountID, coinTicker string, pubKeyHash []byte, txOutType coin.TxOutType, amount decimal.Decimal, interval int64, nextPayment int64) (*AutomaticPayment, error) {
	p := &AutomaticPayment{
		ID: uuid.NewString(), AccountID: accountID, Coin: coinTicker,
		PubKeyHash: pubKeyHash, TxOutType: txOutType, Amount: amount,
		Interval: ClampInterval(interval), NextPayment: nextPayment,
	}
	_, err := w.conn.ExecContext(ctx,
		`INSERT INTO automatic_payments (id, account_id, coin, pubkeyhash, txout_type_id, amount, interval, nextpayment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.Coin, p.PubKeyHash, string(p.TxOutType), p.Amount.String(), p.Interval, p.NextPayment)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AutomaticPaymentsByAccount returns the full list of rules for an
// account — always the full list (spec §9: the `.first()`-returning
// variant is not the semantics this implements).
func (w *WalletDB) AutomaticPaymentsByAccount(ctx context.Context, accountID string) ([]*AutomaticPayment, error) {
	return w.queryAutomaticPayments(ctx, `SELECT id, account_id, coin, pubkeyhash, txout_type_id, amount, interval, nextpayment FROM automatic_payments WHERE account_id = ?`, accountID)
}

// AutomaticPaymentsByAccountAndCoin returns an account's rules for one chain.
func (w *WalletDB) AutomaticPaymentsByAccountAndCoin(ctx context.Context, accountID, coinTicker string) ([]*AutomaticPayment, error) {
	return w.queryAutomaticPayments(ctx, `SELECT id, account_id, coin, pubkeyhash, txout_type_id, amount, interval, nextpayment FROM automatic_payments WHERE account_id = ? AND coin = ?`, accountID, coinTicker)
}

// DueAutomaticPayments returns every rule across every account for a
// coin whose nextpayment has arrived, ordered by id — the candidate
// set the background processor's pass 2 works through one at a time.
func (w *WalletDB) DueAutomaticPayments(ctx context.Context, coinTicker string, now int64) ([]*AutomaticPayment, error) {
	return w.queryAutomaticPayments(ctx,
		`SELECT id, account_id, coin, pubkeyhash, txout_type_id, amount, interval, nextpayment
		 FROM automatic_payments WHERE coin = ? AND nextpayment <= ? ORDER BY id`, coinTicker, now)
}

func (w *WalletDB) queryAutomaticPayments(ctx context.Context, query string, args ...interface{}) ([]*AutomaticPayment, error) {
	rows, err := w.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AutomaticPayment
	for rows.Next() {
		var p AutomaticPayment
		var txOutType, amount string
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Coin, &p.PubKeyHash, &txOutType, &amount, &p.Interval, &p.NextPayment); err != nil {
			return nil, err
		}
		p.TxOutType = coin.TxOutType(txOutType)
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		p.Amount = dec
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ReplaceAutomaticPaymentsForCoin implements the HTTP PUT semantics of
// §6: atomically delete every existing rule for (account, coin) and
// insert the replacement set.
func (w *WalletDB) ReplaceAutomaticPaymentsForCoin(ctx context.Context, accountID, coinTicker string, rules []*AutomaticPayment) error {
	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM automatic_payments WHERE account_id = ? AND coin = ?`, accountID, coinTicker); err != nil {
		return err
	}
	for _, p := range rules {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.Interval = ClampInterval(p.Interval)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO automatic_payments (id, account_id, coin, pubkeyhash, txout_type_id, amount, interval, nextpayment)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, accountID, coinTicker, p.PubKeyHash, string(p.TxOutType), p.Amount.String(), p.Interval, p.NextPayment); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteAutomaticPayment removes a single rule by id.
func (w *WalletDB) DeleteAutomaticPayment(ctx context.Context, id string) error {
	_, err := w.conn.ExecContext(ctx, `DELETE FROM automatic_payments WHERE id = ?`, id)
	return err
}

// AdvanceNextPayment advances NextPayment by (clamped) Interval,
// repeatedly, until it is strictly in the future, and persists the
// result. Matches the invariant of spec §3/§8: after any run,
// nextpayment > now.
func (w *WalletDB) AdvanceNextPayment(ctx context.Context, p *AutomaticPayment, now int64) error {
	p.Interval = ClampInterval(p.Interval)
	for p.NextPayment <= now {
		p.NextPayment += p.Interval
	}
	_, err := w.conn.ExecContext(ctx, `UPDATE automatic_payments SET nextpayment = ?, interval = ? WHERE id = ?`, p.NextPayment, p.Interval, p.ID)
	return err
}
