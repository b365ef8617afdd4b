// Package store provides the SQLite-backed persistence layer: the
// wallet DB (WalletManager/Account/AccountAddress/AutomaticPayment)
// and, per configured coin, a concrete implementation of the indexer
// DB interface the wallet core queries against.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a single SQLite connection with the pooling posture SQLite
// needs: one writer, WAL journal mode, a busy timeout instead of
// immediate SQLITE_BUSY errors.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

func open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)
	return conn, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error { return d.conn.Close() }

// Conn exposes the underlying *sql.DB for callers that need to run
// ad-hoc queries (tests, migrations tooling).
func (d *DB) Conn() *sql.DB { return d.conn }
