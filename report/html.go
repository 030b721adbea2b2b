package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"salesboard/model"
	"salesboard/render"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html"))

const Title = "Rapport d'Analyse des Ventes"

type summaryLine struct {
	Label string
	Value string
}

type htmlData struct {
	Title        string
	Generated    string
	Summary      []summaryLine
	Dropped      int
	Charts       []template.HTML
	ProductTable template.HTML
}

// HTML renders the standalone report page that is also printed to PDF.
func HTML(rep model.Report, f render.Formatter) (string, error) {
	data := htmlData{
		Title:     Title,
		Generated: rep.GeneratedAt.Format("02/01/2006 15:04"),
		Summary: []summaryLine{
			{"Chiffre d'affaires total", fmt.Sprintf("%s (%s)", f.FormatLocal(rep.Summary.TotalRevenue), f.FormatBase(rep.Summary.TotalRevenue))},
			{"Clients uniques", fmt.Sprint(rep.Summary.UniqueCustomers)},
			{"Panier moyen", f.FormatBase(rep.Summary.AverageBasket)},
			{"Nombre de ventes", fmt.Sprint(rep.Summary.TransactionCount)},
			{"Quantité totale", fmt.Sprint(rep.Summary.TotalQuantity)},
			{"Produit phare", bestSeller(rep.BestSeller)},
		},
		Dropped: rep.DroppedRows,
		Charts: []template.HTML{
			template.HTML(render.RevenueByProductChart(rep.AllProducts, f)),
			template.HTML(render.ShareChart(rep.AllProducts, f)),
			template.HTML(render.MonthlyTrendChart(rep.MonthlyTrend, f)),
		},
		ProductTable: template.HTML(render.RankingTableHTML(rep.AllProducts, f)),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

func bestSeller(name string) string {
	if name == "" {
		return "-"
	}
	return name
}
