package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the headline KPIs of a row-set.
type Summary struct {
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	UniqueCustomers  int             `json:"uniqueCustomers"`
	AverageBasket    decimal.Decimal `json:"averageBasket"`
	TransactionCount int             `json:"transactionCount"`
	TotalQuantity    int64           `json:"totalQuantity"`
}

// ProductRanking is one group of a top-N ranking. Share is a percentage of
// total revenue with two decimals.
type ProductRanking struct {
	Product  string          `json:"product"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int64           `json:"quantity"`
	Share    decimal.Decimal `json:"share"`
}

type CustomerRanking struct {
	Customer string          `json:"customer"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int64           `json:"quantity"`
	Share    decimal.Decimal `json:"share"`
}

type MonthlyPoint struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int64           `json:"quantity"`
}

// PivotTable is revenue per product (rows) and customer (columns).
type PivotTable struct {
	Products  []string                              `json:"products"`
	Customers []string                              `json:"customers"`
	Cells     map[string]map[string]decimal.Decimal `json:"cells"`
}

// Report is everything a renderer needs; renderers never query the store.
type Report struct {
	GeneratedAt   time.Time         `json:"generatedAt"`
	Summary       Summary           `json:"summary"`
	LocalRevenue  decimal.Decimal   `json:"localRevenue"`
	LocalBasket   decimal.Decimal   `json:"localBasket"`
	BestSeller    string            `json:"bestSeller"`
	TopProducts   []ProductRanking  `json:"topProducts"`
	AllProducts   []ProductRanking  `json:"allProducts"`
	TopCustomers  []CustomerRanking `json:"topCustomers"`
	MonthlyTrend  []MonthlyPoint    `json:"monthlyTrend"`
	DroppedRows   int               `json:"droppedRows"`
	BaseCurrency  string            `json:"baseCurrency"`
	LocalCurrency string            `json:"localCurrency"`
	Rate          decimal.Decimal   `json:"rate"`
}
