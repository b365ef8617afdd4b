package store

const indexerSchema = `
CREATE TABLE IF NOT EXISTS addresses (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	address TEXT NOT NULL UNIQUE,
	balance TEXT NOT NULL DEFAULT '0',
	pending TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS blocks (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	height INTEGER NOT NULL,
	hash   TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_blocks_height ON blocks(height);

CREATE TABLE IF NOT EXISTS transactions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	txid            TEXT NOT NULL UNIQUE,
	confirmation    INTEGER,
	doublespends_id INTEGER REFERENCES transactions(id)
);

CREATE TABLE IF NOT EXISTS transaction_outputs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions(id),
	address_id     INTEGER NOT NULL REFERENCES addresses(id),
	idx            INTEGER NOT NULL,
	type_id        TEXT NOT NULL,
	amount         TEXT NOT NULL,
	spent_by_id    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_outputs_address ON transaction_outputs(address_id);
CREATE INDEX IF NOT EXISTS idx_outputs_spent ON transaction_outputs(spent_by_id);

CREATE TABLE IF NOT EXISTS transaction_inputs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions(id),
	output_id      INTEGER NOT NULL REFERENCES transaction_outputs(id)
);

CREATE INDEX IF NOT EXISTS idx_inputs_output ON transaction_inputs(output_id);
CREATE INDEX IF NOT EXISTS idx_inputs_transaction ON transaction_inputs(transaction_id);

CREATE TABLE IF NOT EXISTS coinbase_info (
	transaction_id INTEGER PRIMARY KEY REFERENCES transactions(id),
	block_id       INTEGER NOT NULL REFERENCES blocks(id)
);
`

// OpenIndexerDB opens (creating if necessary) one chain's indexer
// database at path. Each tracked coin has its own database, per §6.
func OpenIndexerDB(path string) (*IndexerDB, error) {
	conn, err := open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(indexerSchema); err != nil {
		conn.Close()
		return nil, err
	}
	return &IndexerDB{DB: &DB{conn: conn}}, nil
}
