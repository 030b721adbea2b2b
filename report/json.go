package report

import (
	"encoding/json"
	"io"

	"salesboard/model"
)

type jsonExport struct {
	Report model.Report     `json:"report"`
	Rows   []model.SalesRow `json:"rows"`
}

// WriteJSON writes the report and rows as one indented document.
func WriteJSON(w io.Writer, rep model.Report, rows []model.SalesRow) error {
	if rows == nil {
		rows = []model.SalesRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonExport{Report: rep, Rows: rows})
}
