package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"salesboard/config"
	"salesboard/database"
	"salesboard/model"
)

// Products and customers may be referenced by id or by name; the header
// decides which, column order is free.
var importColumns = [][]string{
	{"product_id", "product"},
	{"customer_id", "customer"},
	{"date"},
	{"quantity"},
}

type ImportResult struct {
	Inserted int `json:"inserted"`
}

// ImportTransactionsCSV appends sales read from r. Referenced products and
// customers must already exist. Any bad line aborts the whole
// import and nothing is written.
func ImportTransactionsCSV(ctx context.Context, db *sqlx.DB, r io.Reader) (res ImportResult, err error) {
	log := config.GetLogger().WithField("module", "loader")

	// Spreadsheet exports often start with a UTF-8 BOM.
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return res, &model.ValidationError{Field: "file", Reason: "empty file"}
	}
	if err != nil {
		return res, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return res, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.WithError(err).Warn("rolling back import")
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	products, err := database.GetProductMap(ctx, tx)
	if err != nil {
		return res, err
	}
	customers, err := database.GetCustomerMap(ctx, tx)
	if err != nil {
		return res, err
	}
	productByName, customerByName := invert(products), invert(customers)

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO transactions (product_id, customer_id, date, quantity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	line := 1
	for {
		record, readErr := cr.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			return res, fmt.Errorf("line %d: %w", line, readErr)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < len(header) {
			return res, lineError(line, "row", fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
		}

		productID, ok := resolveRef(record, index, "product", products, productByName)
		if !ok {
			return res, lineError(line, "product", fmt.Sprintf("unknown product %q", refValue(record, index, "product")))
		}
		customerID, ok := resolveRef(record, index, "customer", customers, customerByName)
		if !ok {
			return res, lineError(line, "customer", fmt.Sprintf("unknown customer %q", refValue(record, index, "customer")))
		}
		date := strings.TrimSpace(record[index["date"]])
		if _, perr := time.Parse("2006-01-02", date); perr != nil {
			return res, lineError(line, "date", fmt.Sprintf("%q is not YYYY-MM-DD", date))
		}
		quantity, perr := strconv.ParseInt(strings.TrimSpace(record[index["quantity"]]), 10, 64)
		if perr != nil || quantity <= 0 {
			return res, lineError(line, "quantity", fmt.Sprintf("%q is not a positive integer", record[index["quantity"]]))
		}

		if _, err := stmt.ExecContext(ctx, productID, customerID, date, quantity); err != nil {
			return res, fmt.Errorf("line %d: failed to insert: %w", line, err)
		}
		res.Inserted++
	}

	log.Infof("imported %d transactions", res.Inserted)
	return res, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, alternatives := range importColumns {
		found := false
		for _, col := range alternatives {
			if _, ok := index[col]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, strings.Join(alternatives, "|"))
		}
	}
	if len(missing) > 0 {
		return nil, &model.ValidationError{Field: "header", Reason: "missing columns: " + strings.Join(missing, ", ")}
	}
	return index, nil
}

func invert(m map[int64]string) map[string]int64 {
	out := make(map[string]int64, len(m))
	for id, name := range m {
		out[name] = id
	}
	return out
}

// refValue returns the raw reference for kind, preferring the id column.
func refValue(record []string, index map[string]int, kind string) string {
	if i, ok := index[kind+"_id"]; ok {
		return strings.TrimSpace(record[i])
	}
	return strings.TrimSpace(record[index[kind]])
}

func resolveRef(record []string, index map[string]int, kind string, byID map[int64]string, byName map[string]int64) (int64, bool) {
	raw := refValue(record, index, kind)
	if _, ok := index[kind+"_id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		_, known := byID[id]
		return id, known
	}
	id, known := byName[raw]
	return id, known
}

func lineError(line int, field, reason string) error {
	return &model.ValidationError{Field: fmt.Sprintf("line %d: %s", line, field), Reason: reason}
}
