package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a journal entry is not found
var ErrNotFound = errors.New("record not found")

// DB is the local dispatch journal. It only records what the feedback cycle
// did; the CRM stays the source of truth for deal state.
type DB struct {
	*sqlx.DB
}

// New opens (creating if needed) the journal database at path
func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}

// Migrate creates the journal tables
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
