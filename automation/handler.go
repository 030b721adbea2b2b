package automation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"salesboard/analysis"
	"salesboard/config"
	"salesboard/model"
	"salesboard/report"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// ReportPDFHandler prints the current HTML report and returns it as a download.
func ReportPDFHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		log := config.GetLogger().WithField("module", "automation")
		cfg := config.GetConfig()

		res, err := analysis.Run(r.Context(), db, cfg, model.RowFilter{}, time.Now())
		if err != nil {
			log.WithError(err).Error("failed to load sales for PDF report")
			writeJSONError(w, "Chargement des ventes impossible: "+err.Error(), http.StatusInternalServerError)
			return
		}
		doc, err := report.HTML(res.Report, res.Converter)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		pdf, err := PrintPDF(r.Context(), doc, PrintOptions{ChromePath: cfg.ChromePath})
		if err != nil {
			log.WithError(err).Error("PDF printing failed")
			status := http.StatusInternalServerError
			if errors.Is(err, ErrNoBrowser) {
				status = http.StatusServiceUnavailable
			}
			writeJSONError(w, "Génération du PDF impossible: "+err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="rapport_ventes.pdf"`)
		w.Write(pdf)
	}
}
