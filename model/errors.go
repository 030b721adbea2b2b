package model

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaError lists every required table and column absent from the store.
type SchemaError struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(e.MissingTables, ", "))
	}
	tables := make([]string, 0, len(e.MissingColumns))
	for t := range e.MissingColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		parts = append(parts, fmt.Sprintf("missing columns in %s: %s", t, strings.Join(e.MissingColumns[t], ", ")))
	}
	if len(parts) == 0 {
		return "schema mismatch"
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// Empty reports whether nothing is missing.
func (e *SchemaError) Empty() bool {
	return len(e.MissingTables) == 0 && len(e.MissingColumns) == 0
}

// StoreConnectionError means the store could not be opened, reached or read.
type StoreConnectionError struct {
	Path string
	Err  error
}

func (e *StoreConnectionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("store unavailable: %v", e.Err)
	}
	return fmt.Sprintf("store %s unavailable: %v", e.Path, e.Err)
}

func (e *StoreConnectionError) Unwrap() error { return e.Err }

// DataIntegrityError names the stored row holding a malformed value.
type DataIntegrityError struct {
	TransactionID int64
	Field         string
	Value         string
	Err           error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("transaction %d: malformed %s %q: %v", e.TransactionID, e.Field, e.Value, e.Err)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

// ValidationError rejects input to a write before anything is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
