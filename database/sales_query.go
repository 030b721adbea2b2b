package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"salesboard/config"
	"salesboard/model"
)

// product and customer names are aliased here so the two "name" columns
// never collide in the scanned row. Quantity and price come back as text and
// are parsed per row, so a bad value is reported with its transaction id.
const salesRowsQuery = `
	SELECT
		t.id AS transaction_id,
		t.product_id AS product_id,
		t.customer_id AS customer_id,
		COALESCE(t.date, '') AS date,
		COALESCE(CAST(t.quantity AS TEXT), '') AS quantity,
		p.name AS product_name,
		COALESCE(CAST(p.price AS TEXT), '') AS unit_price,
		c.name AS customer_name
	FROM transactions t
	JOIN products p ON p.id = t.product_id
	JOIN customers c ON c.id = t.customer_id
	ORDER BY t.id`

const isoDate = "2006-01-02"

// salesRecord is a joined row as stored, before any parsing.
type salesRecord struct {
	TransactionID int64  `db:"transaction_id"`
	ProductID     int64  `db:"product_id"`
	CustomerID    int64  `db:"customer_id"`
	Date          string `db:"date"`
	Quantity      string `db:"quantity"`
	ProductName   string `db:"product_name"`
	UnitPrice     string `db:"unit_price"`
	CustomerName  string `db:"customer_name"`
}

// toRow parses the numeric columns and derives revenue and month.
func (rec salesRecord) toRow() (model.SalesRow, error) {
	row := model.SalesRow{
		TransactionID: rec.TransactionID,
		ProductID:     rec.ProductID,
		CustomerID:    rec.CustomerID,
		Date:          rec.Date,
		ProductName:   rec.ProductName,
		CustomerName:  rec.CustomerName,
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(rec.Quantity))
	if err != nil {
		return row, &model.DataIntegrityError{TransactionID: rec.TransactionID, Field: "quantity", Value: rec.Quantity, Err: err}
	}
	if !qty.IsInteger() {
		return row, &model.DataIntegrityError{TransactionID: rec.TransactionID, Field: "quantity", Value: rec.Quantity, Err: errors.New("must be a whole number")}
	}
	row.Quantity = qty.IntPart()

	price, err := decimal.NewFromString(strings.TrimSpace(rec.UnitPrice))
	if err != nil {
		return row, &model.DataIntegrityError{TransactionID: rec.TransactionID, Field: "price", Value: rec.UnitPrice, Err: err}
	}
	row.UnitPrice = price

	if err := DeriveRow(&row); err != nil {
		return row, err
	}
	return row, nil
}

// LoadSales validates the schema, then reads every transaction joined to its
// product and customer inside one read-only transaction, so the count of
// dropped rows and the join see the same snapshot.
func LoadSales(ctx context.Context, db *sqlx.DB) (*model.SalesLoad, error) {
	if err := ValidateSchema(ctx, db, SalesSchema); err != nil {
		return nil, err
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions`); err != nil {
		return nil, storeError(err)
	}

	var records []salesRecord
	if err := tx.SelectContext(ctx, &records, salesRowsQuery); err != nil {
		return nil, storeError(err)
	}

	rows := make([]model.SalesRow, 0, len(records))
	for _, rec := range records {
		row, err := rec.toRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}

	dropped := total - len(rows)
	if dropped > 0 {
		config.GetLogger().WithFields(logrus.Fields{
			"module":  "database",
			"dropped": dropped,
			"total":   total,
		}).Warn("transactions with unresolved product or customer excluded from load")
	}
	return &model.SalesLoad{Rows: rows, Dropped: dropped}, nil
}

// DeriveRow fills Revenue and Month, rejecting values that would corrupt totals.
func DeriveRow(r *model.SalesRow) error {
	if len(r.Date) != len(isoDate) {
		return &model.DataIntegrityError{TransactionID: r.TransactionID, Field: "date", Value: r.Date, Err: errors.New("expected YYYY-MM-DD")}
	}
	if _, err := time.Parse(isoDate, r.Date); err != nil {
		return &model.DataIntegrityError{TransactionID: r.TransactionID, Field: "date", Value: r.Date, Err: err}
	}
	if r.Quantity <= 0 {
		return &model.DataIntegrityError{TransactionID: r.TransactionID, Field: "quantity", Value: decimal.NewFromInt(r.Quantity).String(), Err: errors.New("must be positive")}
	}
	if r.UnitPrice.IsNegative() {
		return &model.DataIntegrityError{TransactionID: r.TransactionID, Field: "price", Value: r.UnitPrice.String(), Err: errors.New("must not be negative")}
	}
	r.Revenue = r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity))
	r.Month = r.Date[:7]
	return nil
}
