// Package analysis loads the sales store and aggregates it for one request.
package analysis

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"salesboard/aggregation"
	"salesboard/config"
	"salesboard/currency"
	"salesboard/database"
	"salesboard/model"
)

type Result struct {
	Rows      []model.SalesRow
	Dropped   int
	Report    model.Report
	Converter *currency.Converter
}

// Run validates and loads the store, applies the filter and builds the report.
func Run(ctx context.Context, db *sqlx.DB, cfg config.Config, filter model.RowFilter, now time.Time) (*Result, error) {
	conv, err := currency.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	load, err := database.LoadSales(ctx, db)
	if err != nil {
		return nil, err
	}
	rows := aggregation.Filter(load.Rows, filter)
	return &Result{
		Rows:      rows,
		Dropped:   load.Dropped,
		Report:    aggregation.BuildReport(rows, load.Dropped, cfg.TopN, conv, now),
		Converter: conv,
	}, nil
}
