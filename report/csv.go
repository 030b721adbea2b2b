package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"salesboard/model"
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

func newCSVWriter(w io.Writer) (*csv.Writer, error) {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return nil, err
	}
	return csv.NewWriter(w), nil
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	return cw.Error()
}

// WriteTopProductsCSV writes top_produits.csv.
func WriteTopProductsCSV(w io.Writer, rep model.Report) error {
	cw, err := newCSVWriter(w)
	if err != nil {
		return err
	}
	base, local := strings.ToLower(rep.BaseCurrency), strings.ToLower(rep.LocalCurrency)
	if err := cw.Write([]string{"produit", "quantite", "ca_" + base, "ca_" + local, "part_marche"}); err != nil {
		return err
	}
	for _, p := range rep.TopProducts {
		record := []string{
			p.Product,
			strconv.FormatInt(p.Quantity, 10),
			p.Revenue.StringFixed(2),
			p.Revenue.Mul(rep.Rate).StringFixed(2),
			p.Share.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return flush(cw)
}

// WriteTotalsCSV writes ca_total.csv, a single row of headline figures.
func WriteTotalsCSV(w io.Writer, rep model.Report) error {
	cw, err := newCSVWriter(w)
	if err != nil {
		return err
	}
	base, local := strings.ToLower(rep.BaseCurrency), strings.ToLower(rep.LocalCurrency)
	if err := cw.Write([]string{"ca_" + base, "ca_" + local, "clients_uniques", "panier_moyen_" + base, "nombre_ventes"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		rep.Summary.TotalRevenue.StringFixed(2),
		rep.Summary.TotalRevenue.Mul(rep.Rate).StringFixed(2),
		strconv.Itoa(rep.Summary.UniqueCustomers),
		rep.Summary.AverageBasket.StringFixed(2),
		strconv.Itoa(rep.Summary.TransactionCount),
	}); err != nil {
		return err
	}
	return flush(cw)
}

// WriteSalesCSV writes the detailed rows, as filtered on the dashboard.
func WriteSalesCSV(w io.Writer, rows []model.SalesRow) error {
	cw, err := newCSVWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write([]string{"id", "date", "mois", "produit", "client", "quantite", "prix", "ca"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.TransactionID, 10),
			r.Date,
			r.Month,
			r.ProductName,
			r.CustomerName,
			strconv.FormatInt(r.Quantity, 10),
			r.UnitPrice.StringFixed(2),
			r.Revenue.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return flush(cw)
}
