package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS pictures (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL UNIQUE,
	captured_at DATETIME NOT NULL,
	accuracy REAL DEFAULT 0,
	altitude REAL DEFAULT 0,
	latitude REAL DEFAULT 0,
	longitude REAL DEFAULT 0,
	provider TEXT DEFAULT '',
	speed REAL DEFAULT 0,
	fix_time DATETIME,
	filesize INTEGER DEFAULT 0,
	data BLOB,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deliveries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	sink TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT DEFAULT '',
	attempted_at DATETIME NOT NULL,
	duration_ms INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pictures_captured_at ON pictures(captured_at);
CREATE INDEX IF NOT EXISTS idx_pictures_provider ON pictures(provider);
CREATE INDEX IF NOT EXISTS idx_deliveries_item_id ON deliveries(item_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_sink ON deliveries(sink);
`

// DB is the catalog database. Writers take the exclusive lock, readers share it.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New opens (creating if needed) the catalog at dbPath and brings the schema up to date.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// jedno połączenie, sqlite i tak serializuje zapisy
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// migrate applies the schema inside one transaction.
func (db *DB) migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(schema); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
