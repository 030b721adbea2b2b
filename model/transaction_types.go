package model

import "github.com/shopspring/decimal"

type Product struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
}

type Customer struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Transaction is one stored sale.
type Transaction struct {
	ID         int64  `db:"id" json:"id"`
	ProductID  int64  `db:"product_id" json:"productId"`
	CustomerID int64  `db:"customer_id" json:"customerId"`
	Date       string `db:"date" json:"date"`
	Quantity   int64  `db:"quantity" json:"quantity"`
}

// SalesRow is a transaction widened with its product and customer plus
// the derived revenue and month bucket. It is never persisted.
type SalesRow struct {
	TransactionID int64           `db:"transaction_id" json:"transactionId"`
	ProductID     int64           `db:"product_id" json:"productId"`
	CustomerID    int64           `db:"customer_id" json:"customerId"`
	Date          string          `db:"date" json:"date"`
	Quantity      int64           `db:"quantity" json:"quantity"`
	ProductName   string          `db:"product_name" json:"productName"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unitPrice"`
	CustomerName  string          `db:"customer_name" json:"customerName"`
	Revenue       decimal.Decimal `db:"-" json:"revenue"`
	Month         string          `db:"-" json:"month"`
}

// SalesLoad is the loader output. Dropped counts transactions excluded
// because their product or customer reference did not resolve.
type SalesLoad struct {
	Rows    []SalesRow `json:"rows"`
	Dropped int        `json:"dropped"`
}

// RowFilter narrows a row-set for the dashboard table and exports.
type RowFilter struct {
	Products   []string
	MinRevenue decimal.Decimal
	FromMonth  string
	ToMonth    string
}
