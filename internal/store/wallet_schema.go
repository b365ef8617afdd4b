package store

const walletSchema = `
CREATE TABLE IF NOT EXISTS wallet_managers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	token_hash BLOB NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	manager_id    TEXT NOT NULL,
	user          TEXT NOT NULL,
	iv            BLOB NOT NULL,
	encrypted_key BLOB NOT NULL,
	pubkeyhash    BLOB NOT NULL,
	UNIQUE(manager_id, user),
	FOREIGN KEY (manager_id) REFERENCES wallet_managers(id)
);

CREATE INDEX IF NOT EXISTS idx_accounts_manager ON accounts(manager_id);

CREATE TABLE IF NOT EXISTS account_addresses (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	coin       TEXT NOT NULL,
	address_id INTEGER NOT NULL,
	FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_account_addresses_account ON account_addresses(account_id);
CREATE INDEX IF NOT EXISTS idx_account_addresses_coin ON account_addresses(account_id, coin);

CREATE TABLE IF NOT EXISTS automatic_payments (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL,
	coin          TEXT NOT NULL,
	pubkeyhash    BLOB NOT NULL,
	txout_type_id TEXT NOT NULL,
	amount        TEXT NOT NULL,
	interval      INTEGER NOT NULL,
	nextpayment   INTEGER NOT NULL,
	FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_autopayments_account ON automatic_payments(account_id);
CREATE INDEX IF NOT EXISTS idx_autopayments_coin ON automatic_payments(account_id, coin);
CREATE INDEX IF NOT EXISTS idx_autopayments_due ON automatic_payments(coin, nextpayment);
`

// OpenWalletDB opens (creating if necessary) the wallet DB at path and
// applies the schema above. Idempotent: safe to call on every startup.
func OpenWalletDB(path string) (*WalletDB, error) {
	conn, err := open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(walletSchema); err != nil {
		conn.Close()
		return nil, err
	}
	return &WalletDB{DB: &DB{conn: conn}}, nil
}
