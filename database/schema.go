package database

import (
	"context"
	"sort"

	"salesboard/model"
)

// RequiredSchema maps a table name to the columns it must carry.
type RequiredSchema map[string][]string

// SalesSchema is what the loader's join needs.
var SalesSchema = RequiredSchema{
	"products":     {"id", "name", "price"},
	"customers":    {"id", "name"},
	"transactions": {"id", "product_id", "customer_id", "date", "quantity"},
}

// ValidateSchema checks every required table and column through the catalog
// and reports all that are missing in a single *model.SchemaError. It never
// writes to the store.
func ValidateSchema(ctx context.Context, db DBTX, required RequiredSchema) error {
	var tables []string
	if err := db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table'`); err != nil {
		return storeError(err)
	}
	existing := make(map[string]bool, len(tables))
	for _, t := range tables {
		existing[t] = true
	}

	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	schemaErr := &model.SchemaError{MissingColumns: map[string][]string{}}
	for _, table := range names {
		if !existing[table] {
			schemaErr.MissingTables = append(schemaErr.MissingTables, table)
			continue
		}

		var cols []string
		if err := db.SelectContext(ctx, &cols, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
			return storeError(err)
		}
		have := make(map[string]bool, len(cols))
		for _, c := range cols {
			have[c] = true
		}

		var missing []string
		for _, c := range required[table] {
			if !have[c] {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			schemaErr.MissingColumns[table] = missing
		}
	}

	if schemaErr.Empty() {
		return nil
	}
	return schemaErr
}
