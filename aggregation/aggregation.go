package aggregation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salesboard/model"
)

var hundred = decimal.NewFromInt(100)

// Summarize computes the headline KPIs. AverageBasket is rounded to two
// decimals and is zero for an empty row-set.
func Summarize(rows []model.SalesRow) model.Summary {
	s := model.Summary{
		TotalRevenue:     decimal.Zero,
		AverageBasket:    decimal.Zero,
		TransactionCount: len(rows),
	}
	customers := make(map[int64]struct{})
	for _, r := range rows {
		s.TotalRevenue = s.TotalRevenue.Add(r.Revenue)
		s.TotalQuantity += r.Quantity
		customers[r.CustomerID] = struct{}{}
	}
	s.UniqueCustomers = len(customers)
	if len(rows) > 0 {
		s.AverageBasket = s.TotalRevenue.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}
	return s
}

// TopProducts ranks products by summed revenue, name ascending on ties, and
// returns the first n. Shares are computed over every product and the full
// ranking never sums past 100.00.
func TopProducts(rows []model.SalesRow, n int) []model.ProductRanking {
	groups := rank(groupBy(rows, func(r model.SalesRow) string { return r.ProductName }))
	groups = limit(groups, n)
	out := make([]model.ProductRanking, len(groups))
	for i, g := range groups {
		out[i] = model.ProductRanking{Product: g.key, Revenue: g.revenue, Quantity: g.quantity, Share: g.share}
	}
	return out
}

// TopCustomers applies the TopProducts rules keyed by customer name.
func TopCustomers(rows []model.SalesRow, n int) []model.CustomerRanking {
	groups := rank(groupBy(rows, func(r model.SalesRow) string { return r.CustomerName }))
	groups = limit(groups, n)
	out := make([]model.CustomerRanking, len(groups))
	for i, g := range groups {
		out[i] = model.CustomerRanking{Customer: g.key, Revenue: g.revenue, Quantity: g.quantity, Share: g.share}
	}
	return out
}

// MonthlyTrend sums revenue and quantity per YYYY-MM bucket, oldest first.
func MonthlyTrend(rows []model.SalesRow) []model.MonthlyPoint {
	groups := groupBy(rows, func(r model.SalesRow) string { return r.Month })
	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	out := make([]model.MonthlyPoint, len(groups))
	for i, g := range groups {
		out[i] = model.MonthlyPoint{Month: g.key, Revenue: g.revenue, Quantity: g.quantity}
	}
	return out
}

// BestSeller is the product with the greatest quantity sold, or "" when
// there are no rows.
func BestSeller(rows []model.SalesRow) string {
	groups := groupBy(rows, func(r model.SalesRow) string { return r.ProductName })
	best := ""
	var bestQty int64 = -1
	for _, g := range groups {
		if g.quantity > bestQty || (g.quantity == bestQty && g.key < best) {
			best, bestQty = g.key, g.quantity
		}
	}
	return best
}

// ProductCustomerPivot spreads revenue over product rows and customer columns.
// Both axes are sorted by name; absent pairs have no cell.
func ProductCustomerPivot(rows []model.SalesRow) model.PivotTable {
	p := model.PivotTable{
		Products:  []string{},
		Customers: []string{},
		Cells:     make(map[string]map[string]decimal.Decimal),
	}
	customers := make(map[string]struct{})
	for _, r := range rows {
		row, ok := p.Cells[r.ProductName]
		if !ok {
			row = make(map[string]decimal.Decimal)
			p.Cells[r.ProductName] = row
			p.Products = append(p.Products, r.ProductName)
		}
		row[r.CustomerName] = row[r.CustomerName].Add(r.Revenue)
		if _, ok := customers[r.CustomerName]; !ok {
			customers[r.CustomerName] = struct{}{}
			p.Customers = append(p.Customers, r.CustomerName)
		}
	}
	sort.Strings(p.Products)
	sort.Strings(p.Customers)
	return p
}

// Converter is the part of the currency converter a report needs.
type Converter interface {
	Rate() decimal.Decimal
	Base() string
	Local() string
	ToLocal(amount decimal.Decimal) decimal.Decimal
}

// BuildReport bundles every aggregate a renderer consumes.
func BuildReport(rows []model.SalesRow, dropped, topN int, conv Converter, now time.Time) model.Report {
	summary := Summarize(rows)
	return model.Report{
		GeneratedAt:   now,
		Summary:       summary,
		LocalRevenue:  conv.ToLocal(summary.TotalRevenue),
		LocalBasket:   conv.ToLocal(summary.AverageBasket),
		BestSeller:    BestSeller(rows),
		TopProducts:   TopProducts(rows, topN),
		AllProducts:   TopProducts(rows, len(rows)),
		TopCustomers:  TopCustomers(rows, topN),
		MonthlyTrend:  MonthlyTrend(rows),
		DroppedRows:   dropped,
		BaseCurrency:  conv.Base(),
		LocalCurrency: conv.Local(),
		Rate:          conv.Rate(),
	}
}
