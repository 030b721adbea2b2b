// Package views holds the dashboard's HTML templates.
package views

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed *.html
var files embed.FS

// Parse loads every page template.
func Parse() (*template.Template, error) {
	return template.New("views").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
	}).ParseFS(files, "*.html")
}
