package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"salesboard/model"
	"salesboard/render"
)

// Text renders the plain-text analysis report.
func Text(rep model.Report, f render.Formatter) string {
	var sb strings.Builder

	sb.WriteString("=== RAPPORT D'ANALYSE ===\n")
	sb.WriteString(fmt.Sprintf("Date: %s\n", rep.GeneratedAt.Format("2006-01-02 15:04")))

	sb.WriteString("\n=== INDICATEURS CLÉS ===\n")
	sb.WriteString(fmt.Sprintf("• CA Total: %s (%s)\n", f.FormatBase(rep.Summary.TotalRevenue), f.FormatLocal(rep.Summary.TotalRevenue)))
	sb.WriteString(fmt.Sprintf("• Clients uniques: %d\n", rep.Summary.UniqueCustomers))
	sb.WriteString(fmt.Sprintf("• Panier moyen: %s\n", f.FormatBase(rep.Summary.AverageBasket)))
	sb.WriteString(fmt.Sprintf("• Nombre de ventes: %d\n", rep.Summary.TransactionCount))
	if rep.BestSeller != "" {
		sb.WriteString(fmt.Sprintf("• Produit phare: %s\n", rep.BestSeller))
	}
	if rep.DroppedRows > 0 {
		sb.WriteString(fmt.Sprintf("• Ventes ignorées (références inconnues): %d\n", rep.DroppedRows))
	}

	sb.WriteString(fmt.Sprintf("\n=== TOP %d PRODUITS ===\n", len(rep.TopProducts)))
	if len(rep.TopProducts) == 0 {
		sb.WriteString("Aucune vente.\n")
		return sb.String()
	}
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "produit\tquantite\tca_%s\tca_%s\tpart_marche\t\n", strings.ToLower(rep.BaseCurrency), strings.ToLower(rep.LocalCurrency))
	for _, p := range rep.TopProducts {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			p.Product, p.Quantity, f.Number(p.Revenue, 2), f.Number(p.Revenue.Mul(rep.Rate), 0), f.Number(p.Share, 2))
	}
	tw.Flush()

	return sb.String()
}
