package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"salesboard/model"
)

// Formatter prints amounts for display. *currency.Converter implements it.
type Formatter interface {
	Number(d decimal.Decimal, scale int) string
	FormatBase(amount decimal.Decimal) string
	FormatLocal(amount decimal.Decimal) string
	Percent(share decimal.Decimal) string
}

// SalesTableHTML renders the detailed sales table, one row per transaction.
func SalesTableHTML(rows []model.SalesRow, f Formatter) string {
	var sb strings.Builder

	sb.WriteString(`<table class="data-table sales-table">`)
	sb.WriteString(`<thead><tr>
            <th class="col-id">N°</th>
            <th class="col-date">Date</th>
            <th class="col-product">Produit</th>
            <th class="col-customer">Client</th>
            <th class="col-qty">Quantité</th>
            <th class="col-unitprice">Prix unitaire</th>
            <th class="col-amount">Chiffre d'affaires</th>
        </tr></thead>`)

	sb.WriteString(`<tbody>`)
	if len(rows) == 0 {
		sb.WriteString(`<tr><td colspan="7" class="center">Aucune vente ne correspond aux filtres.</td></tr>`)
	} else {
		for _, r := range rows {
			sb.WriteString(`<tr>`)
			sb.WriteString(fmt.Sprintf(`<td class="right col-id">%d</td>`, r.TransactionID))
			sb.WriteString(fmt.Sprintf(`<td class="center col-date">%s</td>`, html.EscapeString(r.Date)))
			sb.WriteString(fmt.Sprintf(`<td class="col-product">%s</td>`, html.EscapeString(r.ProductName)))
			sb.WriteString(fmt.Sprintf(`<td class="col-customer">%s</td>`, html.EscapeString(r.CustomerName)))
			sb.WriteString(fmt.Sprintf(`<td class="right col-qty">%s</td>`, strconv.FormatInt(r.Quantity, 10)))
			sb.WriteString(fmt.Sprintf(`<td class="right col-unitprice">%s</td>`, html.EscapeString(f.FormatBase(r.UnitPrice))))
			sb.WriteString(fmt.Sprintf(`<td class="right col-amount">%s</td>`, html.EscapeString(f.FormatBase(r.Revenue))))
			sb.WriteString(`</tr>`)
		}
	}
	sb.WriteString(`</tbody></table>`)

	return sb.String()
}

// RankingTableHTML renders a product ranking with revenue in both currencies.
func RankingTableHTML(ranks []model.ProductRanking, f Formatter) string {
	var sb strings.Builder

	sb.WriteString(`<table class="data-table ranking-table">`)
	sb.WriteString(`<thead><tr>
            <th class="col-rank">Rang</th>
            <th class="col-product">Produit</th>
            <th class="col-qty">Quantité</th>
            <th class="col-amount">Chiffre d'affaires</th>
            <th class="col-local">Montant local</th>
            <th class="col-share">Part</th>
        </tr></thead>`)

	sb.WriteString(`<tbody>`)
	if len(ranks) == 0 {
		sb.WriteString(`<tr><td colspan="6" class="center">Aucune donnée.</td></tr>`)
	}
	for i, p := range ranks {
		sb.WriteString(`<tr>`)
		sb.WriteString(fmt.Sprintf(`<td class="right col-rank">%d</td>`, i+1))
		sb.WriteString(fmt.Sprintf(`<td class="col-product">%s</td>`, html.EscapeString(p.Product)))
		sb.WriteString(fmt.Sprintf(`<td class="right col-qty">%d</td>`, p.Quantity))
		sb.WriteString(fmt.Sprintf(`<td class="right col-amount">%s</td>`, html.EscapeString(f.FormatBase(p.Revenue))))
		sb.WriteString(fmt.Sprintf(`<td class="right col-local">%s</td>`, html.EscapeString(f.FormatLocal(p.Revenue))))
		sb.WriteString(fmt.Sprintf(`<td class="right col-share">%s</td>`, html.EscapeString(f.Percent(p.Share))))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)

	return sb.String()
}

// PivotTableHTML renders revenue per product and customer with row totals.
func PivotTableHTML(p model.PivotTable, f Formatter) string {
	var sb strings.Builder

	sb.WriteString(`<table class="data-table pivot-table"><thead><tr><th>Produit</th>`)
	for _, c := range p.Customers {
		sb.WriteString(fmt.Sprintf(`<th>%s</th>`, html.EscapeString(c)))
	}
	sb.WriteString(`<th>Total</th></tr></thead><tbody>`)

	if len(p.Products) == 0 {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="%d" class="center">Aucune donnée.</td></tr>`, len(p.Customers)+2))
	}
	for _, product := range p.Products {
		total := decimal.Zero
		sb.WriteString(fmt.Sprintf(`<tr><td class="col-product">%s</td>`, html.EscapeString(product)))
		for _, c := range p.Customers {
			v, ok := p.Cells[product][c]
			if !ok {
				sb.WriteString(`<td class="right">-</td>`)
				continue
			}
			total = total.Add(v)
			sb.WriteString(fmt.Sprintf(`<td class="right">%s</td>`, html.EscapeString(f.Number(v, 2))))
		}
		sb.WriteString(fmt.Sprintf(`<td class="right total">%s</td></tr>`, html.EscapeString(f.Number(total, 2))))
	}
	sb.WriteString(`</tbody></table>`)

	return sb.String()
}
