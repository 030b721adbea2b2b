package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"

	"salesboard/model"
)

type group struct {
	key      string
	revenue  decimal.Decimal
	quantity int64
	share    decimal.Decimal
}

// groupBy sums revenue and quantity per key, in first-seen order.
func groupBy(rows []model.SalesRow, key func(model.SalesRow) string) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, r := range rows {
		k := key(r)
		g, ok := index[k]
		if !ok {
			g = &group{key: k, revenue: decimal.Zero, share: decimal.Zero}
			index[k] = g
			groups = append(groups, g)
		}
		g.revenue = g.revenue.Add(r.Revenue)
		g.quantity += r.Quantity
	}
	return groups
}

// rank sorts by revenue descending then key ascending, and fills shares.
func rank(groups []*group) []*group {
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].revenue.Cmp(groups[j].revenue); c != 0 {
			return c > 0
		}
		return groups[i].key < groups[j].key
	})
	roundShares(groups)
	return groups
}

func limit(groups []*group, n int) []*group {
	if n <= 0 {
		return []*group{}
	}
	if n > len(groups) {
		n = len(groups)
	}
	return groups[:n]
}

// roundShares sets each group's percentage of total revenue rounded to two
// decimals, so equal revenues get equal shares. When rounding pushes the sum
// past 100.00 the excess is taken a hundredth at a time from the last-ranked
// groups that rounded up. Groups must already be in rank order.
func roundShares(groups []*group) {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.revenue)
	}
	if !total.IsPositive() {
		for _, g := range groups {
			g.share = decimal.Zero
		}
		return
	}

	exact := make([]decimal.Decimal, len(groups))
	sum := decimal.Zero
	for i, g := range groups {
		exact[i] = g.revenue.Mul(hundred).Div(total)
		g.share = exact[i].Round(2)
		sum = sum.Add(g.share)
	}

	cent := decimal.New(1, -2)
	for i := len(groups) - 1; i >= 0 && sum.GreaterThan(hundred); i-- {
		if groups[i].share.GreaterThan(exact[i]) {
			groups[i].share = groups[i].share.Sub(cent)
			sum = sum.Sub(cent)
		}
	}
}

// Filter keeps rows matching every set criterion. An empty product list
// keeps all products; month bounds are inclusive YYYY-MM strings.
func Filter(rows []model.SalesRow, f model.RowFilter) []model.SalesRow {
	var products map[string]struct{}
	if len(f.Products) > 0 {
		products = make(map[string]struct{}, len(f.Products))
		for _, p := range f.Products {
			products[p] = struct{}{}
		}
	}
	out := make([]model.SalesRow, 0, len(rows))
	for _, r := range rows {
		if products != nil {
			if _, ok := products[r.ProductName]; !ok {
				continue
			}
		}
		if r.Revenue.LessThan(f.MinRevenue) {
			continue
		}
		if f.FromMonth != "" && r.Month < f.FromMonth {
			continue
		}
		if f.ToMonth != "" && r.Month > f.ToMonth {
			continue
		}
		out = append(out, r)
	}
	return out
}
