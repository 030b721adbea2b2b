package render

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"salesboard/model"
)

// Datum is one labelled value of a chart.
type Datum struct {
	Label string
	Value decimal.Decimal
}

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

const (
	chartWidth = 640
	fontStyle  = `font-family="sans-serif" font-size="12"`
)

func color(i int) string {
	return palette[i%len(palette)]
}

func svgOpen(sb *strings.Builder, width, height int, title string) {
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" class="chart" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, width, height, width, height))
	sb.WriteString(fmt.Sprintf(`<title>%s</title>`, html.EscapeString(title)))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="22" text-anchor="middle" font-family="sans-serif" font-size="15" font-weight="bold">%s</text>`, width/2, html.EscapeString(title)))
}

func emptyChart(title string) string {
	var sb strings.Builder
	svgOpen(&sb, chartWidth, 80, title)
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="55" text-anchor="middle" %s fill="#777">Aucune donnée</text>`, chartWidth/2, fontStyle))
	sb.WriteString(`</svg>`)
	return sb.String()
}

func maxValue(data []Datum) float64 {
	m := 0.0
	for _, d := range data {
		if v := d.Value.InexactFloat64(); v > m {
			m = v
		}
	}
	return m
}

// BarChartSVG draws horizontal bars, one per datum, in the given order.
func BarChartSVG(title string, data []Datum, f Formatter) string {
	if len(data) == 0 {
		return emptyChart(title)
	}
	const (
		top      = 40
		rowH     = 30
		barH     = 20
		labelW   = 170
		valueW   = 120
		bottom   = 15
		plotLeft = labelW + 10
	)
	plotW := float64(chartWidth - plotLeft - valueW)
	height := top + len(data)*rowH + bottom
	peak := maxValue(data)

	var sb strings.Builder
	svgOpen(&sb, chartWidth, height, title)
	for i, d := range data {
		y := top + i*rowH
		w := 0.0
		if peak > 0 {
			w = d.Value.InexactFloat64() / peak * plotW
		}
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="end" %s>%s</text>`, labelW, y+barH-5, fontStyle, html.EscapeString(d.Label)))
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%.1f" height="%d" fill="%s"/>`, plotLeft, y, w, barH, color(i)))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" %s>%s</text>`, float64(plotLeft)+w+6, y+barH-5, fontStyle, html.EscapeString(f.Number(d.Value, 2))))
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

// LineChartSVG draws the values as a polyline over evenly spaced labels.
func LineChartSVG(title string, data []Datum, f Formatter) string {
	if len(data) == 0 {
		return emptyChart(title)
	}
	const (
		height = 320
		left   = 80
		right  = 20
		top    = 40
		bottom = 60
	)
	plotW := float64(chartWidth - left - right)
	plotH := float64(height - top - bottom)
	peak := maxValue(data)

	x := func(i int) float64 {
		if len(data) == 1 {
			return float64(left) + plotW/2
		}
		return float64(left) + plotW*float64(i)/float64(len(data)-1)
	}
	y := func(v float64) float64 {
		if peak <= 0 {
			return float64(top) + plotH
		}
		return float64(top) + plotH*(1-v/peak)
	}

	var sb strings.Builder
	svgOpen(&sb, chartWidth, height, title)

	// axes
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333"/>`, left, top, left, height-bottom))
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333"/>`, left, height-bottom, chartWidth-right, height-bottom))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="end" %s>0</text>`, left-6, height-bottom+4, fontStyle))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="end" %s>%s</text>`, left-6, top+4, fontStyle, html.EscapeString(f.Number(decimal.NewFromFloat(peak), 0))))

	points := make([]string, len(data))
	for i, d := range data {
		points[i] = fmt.Sprintf("%.1f,%.1f", x(i), y(d.Value.InexactFloat64()))
	}
	sb.WriteString(fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="2" points="%s"/>`, color(0), strings.Join(points, " ")))

	for i, d := range data {
		px, py := x(i), y(d.Value.InexactFloat64())
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3.5" fill="%s"><title>%s: %s</title></circle>`, px, py, color(0), html.EscapeString(d.Label), html.EscapeString(f.Number(d.Value, 2))))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" text-anchor="end" transform="rotate(-45 %.1f %d)" %s>%s</text>`, px, height-bottom+16, px, height-bottom+16, fontStyle, html.EscapeString(d.Label)))
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

// PieChartSVG draws a donut of each datum's part of the total with a legend.
func PieChartSVG(title string, data []Datum, f Formatter) string {
	total := 0.0
	for _, d := range data {
		total += d.Value.InexactFloat64()
	}
	if len(data) == 0 || total <= 0 {
		return emptyChart(title)
	}
	const (
		height = 300
		cx     = 160.0
		cy     = 165.0
		r      = 110.0
		inner  = 55.0
	)

	var sb strings.Builder
	svgOpen(&sb, chartWidth, height, title)

	angle := -math.Pi / 2
	for i, d := range data {
		part := d.Value.InexactFloat64() / total
		if part <= 0 {
			continue
		}
		if part >= 0.9999 {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`, cx, cy, r, color(i)))
			break
		}
		end := angle + part*2*math.Pi
		large := 0
		if part > 0.5 {
			large = 1
		}
		sb.WriteString(fmt.Sprintf(`<path d="M %.2f %.2f A %.1f %.1f 0 %d 1 %.2f %.2f L %.1f %.1f Z" fill="%s"/>`,
			cx+r*math.Cos(angle), cy+r*math.Sin(angle), r, r, large, cx+r*math.Cos(end), cy+r*math.Sin(end), cx, cy, color(i)))
		angle = end
	}
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="#fff"/>`, cx, cy, inner))

	for i, d := range data {
		y := 60 + i*22
		pct := d.Value.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromFloat(total))
		sb.WriteString(fmt.Sprintf(`<rect x="320" y="%d" width="14" height="14" fill="%s"/>`, y-11, color(i)))
		sb.WriteString(fmt.Sprintf(`<text x="342" y="%d" %s>%s (%s)</text>`, y, fontStyle, html.EscapeString(d.Label), html.EscapeString(f.Percent(pct))))
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

// RevenueByProductChart charts a product ranking as bars.
func RevenueByProductChart(ranks []model.ProductRanking, f Formatter) string {
	data := make([]Datum, len(ranks))
	for i, p := range ranks {
		data[i] = Datum{Label: p.Product, Value: p.Revenue}
	}
	return BarChartSVG("Chiffre d'affaires par produit", data, f)
}

func TopCustomersChart(ranks []model.CustomerRanking, f Formatter) string {
	data := make([]Datum, len(ranks))
	for i, c := range ranks {
		data[i] = Datum{Label: c.Customer, Value: c.Revenue}
	}
	return BarChartSVG("Meilleurs clients", data, f)
}

func MonthlyTrendChart(points []model.MonthlyPoint, f Formatter) string {
	data := make([]Datum, len(points))
	for i, p := range points {
		data[i] = Datum{Label: p.Month, Value: p.Revenue}
	}
	return LineChartSVG("Évolution mensuelle du chiffre d'affaires", data, f)
}

func ShareChart(ranks []model.ProductRanking, f Formatter) string {
	data := make([]Datum, len(ranks))
	for i, p := range ranks {
		data[i] = Datum{Label: p.Product, Value: p.Revenue}
	}
	return PieChartSVG("Répartition du chiffre d'affaires", data, f)
}
