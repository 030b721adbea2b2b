package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"salesboard/model"
)

// DBTX is satisfied by *sqlx.DB, *sqlx.Tx and *sqlx.Conn.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Open opens (creating if needed) the sales store for reading and writing.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &model.StoreConnectionError{Path: path, Err: err}
		}
	}
	return open(path, path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
}

// OpenReadOnly opens an existing sales store without ever creating it.
func OpenReadOnly(path string) (*sqlx.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &model.StoreConnectionError{Path: path, Err: err}
	}
	return open(path, "file:"+path+"?mode=ro&_busy_timeout=5000")
}

func open(path, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, &model.StoreConnectionError{Path: path, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &model.StoreConnectionError{Path: path, Err: err}
	}
	return db, nil
}

// storeError wraps driver failures that mean the store itself is unusable
// (busy, locked, unreadable) as StoreConnectionError and leaves the rest alone.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var sc *model.StoreConnectionError
	if errors.As(err, &sc) {
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrIoErr, sqlite3.ErrPerm:
			return &model.StoreConnectionError{Err: err}
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &model.StoreConnectionError{Err: err}
	}
	// database/sql does not export its closed-handle error.
	if strings.Contains(err.Error(), "sql: database is closed") {
		return &model.StoreConnectionError{Err: err}
	}
	return fmt.Errorf("sales store: %w", err)
}
