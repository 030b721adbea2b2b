package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"salesboard/aggregation"
	"salesboard/analysis"
	"salesboard/config"
	"salesboard/model"
	"salesboard/render"
	"salesboard/report"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// filterFromQuery reads product (repeatable), minRevenue, from and to.
func filterFromQuery(q url.Values) (model.RowFilter, error) {
	var f model.RowFilter
	for _, p := range q["product"] {
		if p = strings.TrimSpace(p); p != "" {
			f.Products = append(f.Products, p)
		}
	}
	if v := strings.TrimSpace(q.Get("minRevenue")); v != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
		if err != nil || d.IsNegative() {
			return f, &model.ValidationError{Field: "minRevenue", Reason: "must be a non-negative number"}
		}
		f.MinRevenue = d
	}
	for _, m := range []struct {
		key string
		dst *string
	}{{"from", &f.FromMonth}, {"to", &f.ToMonth}} {
		if v := q.Get(m.key); v != "" {
			if !monthPattern.MatchString(v) {
				return f, &model.ValidationError{Field: m.key, Reason: "expected YYYY-MM"}
			}
			*m.dst = v
		}
	}
	return f, nil
}

func parseLimit(q url.Values, fallback int) (int, error) {
	v := q.Get("n")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &model.ValidationError{Field: "n", Reason: "must be a non-negative integer"}
	}
	return n, nil
}

// writeAnalysisError maps loader and validation failures to status codes.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var (
		ve  *model.ValidationError
		se  *model.SchemaError
		die *model.DataIntegrityError
		sce *model.StoreConnectionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &se), errors.As(err, &die):
		config.LogError(config.GetLogger(), "main", "writeAnalysisError", "sales store is inconsistent", nil, err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	case errors.As(err, &sce):
		config.LogError(config.GetLogger(), "main", "writeAnalysisError", "sales store unavailable", nil, err)
		writeJSONError(w, "Base de ventes indisponible.", http.StatusServiceUnavailable)
	default:
		config.LogError(config.GetLogger(), "main", "writeAnalysisError", "analysis failed", nil, err)
		writeJSONError(w, "Analyse impossible.", http.StatusInternalServerError)
	}
}

// analyse runs the load for a request, writing the error response itself
// when it fails.
func analyse(w http.ResponseWriter, r *http.Request, db *sqlx.DB) (*analysis.Result, bool) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeAnalysisError(w, err)
		return nil, false
	}
	res, err := analysis.Run(r.Context(), db, config.GetConfig(), filter, time.Now())
	if err != nil {
		writeAnalysisError(w, err)
		return nil, false
	}
	return res, true
}

func KPIHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		rep := res.Report
		writeJSON(w, map[string]interface{}{
			"summary":       rep.Summary,
			"localRevenue":  rep.LocalRevenue,
			"localBasket":   rep.LocalBasket,
			"bestSeller":    rep.BestSeller,
			"droppedRows":   rep.DroppedRows,
			"baseCurrency":  rep.BaseCurrency,
			"localCurrency": rep.LocalCurrency,
			"rate":          rep.Rate,
		})
	}
}

func TopProductsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := parseLimit(r.URL.Query(), config.GetConfig().TopN)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		writeJSON(w, aggregation.TopProducts(res.Rows, n))
	}
}

func TopCustomersHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := parseLimit(r.URL.Query(), config.GetConfig().TopN)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		writeJSON(w, aggregation.TopCustomers(res.Rows, n))
	}
}

func MonthlyHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		writeJSON(w, res.Report.MonthlyTrend)
	}
}

func RowsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		writeJSON(w, res.Rows)
	}
}

// PivotHandler returns JSON, or an HTML table fragment with ?format=html.
func PivotHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := analyse(w, r, db)
		if !ok {
			return
		}
		pivot := aggregation.ProductCustomerPivot(res.Rows)
		if r.URL.Query().Get("format") == "html" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, render.PivotTableHTML(pivot, res.Converter))
			return
		}
		writeJSON(w, pivot)
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func exportName(v string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(v, "_"), "_")
	if name == "" {
		return "export_ventes"
	}
	return name
}

// ExportHandler downloads the filtered rows as csv, xlsx or json.
func ExportHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		format := q.Get("format")
		if format == "" {
			format = "csv"
		}
		var contentType string
		switch format {
		case "csv":
			contentType = "text/csv; charset=utf-8"
		case "xlsx":
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		case "json":
			contentType = "application/json"
		default:
			writeJSONError(w, "Format d'export inconnu: "+format, http.StatusBadRequest)
			return
		}

		res, ok := analyse(w, r, db)
		if !ok {
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, exportName(q.Get("name")), format))
		var err error
		switch format {
		case "csv":
			err = report.WriteSalesCSV(w, res.Rows)
		case "xlsx":
			err = report.WriteExcel(w, res.Report, res.Rows)
		case "json":
			err = report.WriteJSON(w, res.Report, res.Rows)
		}
		if err != nil {
			config.GetLogger().WithError(err).WithField("format", format).Error("export failed")
		}
	}
}
