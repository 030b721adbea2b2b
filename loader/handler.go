package loader

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"salesboard/config"
	"salesboard/model"
)

const maxImportSize = 10 << 20

// ImportTransactionsHandler accepts a multipart upload in field "file" and
// appends its rows to the store.
func ImportTransactionsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := config.GetLogger().WithField("module", "loader")
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
		if err := r.ParseMultipartForm(maxImportSize); err != nil {
			http.Error(w, "failed to parse upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		log.Infof("import requested: %s (%d bytes)", header.Filename, header.Size)
		res, err := ImportTransactionsCSV(r.Context(), db, file)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.WithError(err).Error("import failed")
			http.Error(w, "import failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":  "import complete",
			"inserted": res.Inserted,
		})
	}
}
