package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"salesboard/model"
)

const (
	sheetSummary  = "Summary"
	sheetProducts = "Top products"
	sheetMonthly  = "Monthly"
	sheetSales    = "Sales"
)

// WriteExcel writes the report and the given rows as an xlsx workbook.
func WriteExcel(w io.Writer, rep model.Report, rows []model.SalesRow) error {
	f, err := buildWorkbook(rep, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(rep model.Report, rows []model.SalesRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{sheetProducts, sheetMonthly, sheetSales} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	summary := [][]interface{}{
		{"Indicateur", "Valeur"},
		{"Date", rep.GeneratedAt.Format("2006-01-02 15:04")},
		{"CA total (" + rep.BaseCurrency + ")", rep.Summary.TotalRevenue.InexactFloat64()},
		{"CA total (" + rep.LocalCurrency + ")", rep.LocalRevenue.InexactFloat64()},
		{"Clients uniques", rep.Summary.UniqueCustomers},
		{"Panier moyen (" + rep.BaseCurrency + ")", rep.Summary.AverageBasket.InexactFloat64()},
		{"Nombre de ventes", rep.Summary.TransactionCount},
		{"Quantité totale", rep.Summary.TotalQuantity},
		{"Produit phare", rep.BestSeller},
		{"Taux de change", rep.Rate.InexactFloat64()},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return nil, err
	}

	products := [][]interface{}{{"Produit", "Quantité", "CA " + rep.BaseCurrency, "CA " + rep.LocalCurrency, "Part (%)"}}
	for _, p := range rep.AllProducts {
		products = append(products, []interface{}{
			p.Product, p.Quantity, p.Revenue.InexactFloat64(), p.Revenue.Mul(rep.Rate).InexactFloat64(), p.Share.InexactFloat64(),
		})
	}
	if err := writeRows(f, sheetProducts, products); err != nil {
		return nil, err
	}

	monthly := [][]interface{}{{"Mois", "Quantité", "CA " + rep.BaseCurrency}}
	for _, m := range rep.MonthlyTrend {
		monthly = append(monthly, []interface{}{m.Month, m.Quantity, m.Revenue.InexactFloat64()})
	}
	if err := writeRows(f, sheetMonthly, monthly); err != nil {
		return nil, err
	}

	sales := [][]interface{}{{"N°", "Date", "Mois", "Produit", "Client", "Quantité", "Prix unitaire", "CA"}}
	for _, r := range rows {
		sales = append(sales, []interface{}{
			r.TransactionID, r.Date, r.Month, r.ProductName, r.CustomerName, r.Quantity, r.UnitPrice.InexactFloat64(), r.Revenue.InexactFloat64(),
		})
	}
	if err := writeRows(f, sheetSales, sales); err != nil {
		return nil, err
	}

	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				f.Close()
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				f.Close()
				return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
