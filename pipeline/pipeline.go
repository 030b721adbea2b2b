// Package pipeline runs the batch analysis end to end: optional seeding,
// schema validation, load, aggregation, exports, charts, the text report and
// an optional PDF. Every step reports an explicit status so a later step
// never guesses from files left on disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"salesboard/aggregation"
	"salesboard/automation"
	"salesboard/config"
	"salesboard/currency"
	"salesboard/database"
	"salesboard/loader"
	"salesboard/model"
	"salesboard/render"
	"salesboard/report"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

const (
	StepSeed       = "seed"
	StepValidate   = "validate"
	StepLoad       = "load"
	StepAggregate  = "aggregate"
	StepExport     = "export"
	StepCharts     = "charts"
	StepTextReport = "text-report"
	StepPDF        = "pdf"
)

// LogFileName is written in the output directory for every run.
const LogFileName = "analyse.log"

type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
	Outputs  []string      `json:"outputs,omitempty"`
	// SkippedBecause names the failed upstream step, or "disabled".
	SkippedBecause string `json:"skippedBecause,omitempty"`
}

// PrintFunc turns an HTML document into PDF bytes.
type PrintFunc func(ctx context.Context, htmlDoc string) ([]byte, error)

type Options struct {
	Seed        bool
	SeedOptions loader.SeedOptions
	PDF         bool
	// Printer defaults to a headless browser using the configured chromePath.
	Printer PrintFunc
	Now     time.Time
}

// state carries values between steps.
type state struct {
	load   *model.SalesLoad
	conv   *currency.Converter
	report model.Report
}

type step struct {
	name    string
	deps    []string
	enabled bool
	run     func(ctx context.Context, st *state) ([]string, error)
}

type Runner struct {
	db   *sqlx.DB
	cfg  config.Config
	opts Options
}

func New(db *sqlx.DB, cfg config.Config, opts Options) *Runner {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Printer == nil {
		chrome := cfg.ChromePath
		opts.Printer = func(ctx context.Context, htmlDoc string) ([]byte, error) {
			return automation.PrintPDF(ctx, htmlDoc, automation.PrintOptions{ChromePath: chrome})
		}
	}
	return &Runner{db: db, cfg: cfg, opts: opts}
}

// Run executes every step in order. It returns all results and, when any
// step failed, an error naming the first failure.
func (p *Runner) Run(ctx context.Context) ([]StepResult, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(p.cfg.OutputDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := config.GetLogger()
	prev := logger.Out
	config.SetLogOutput(io.MultiWriter(prev, logFile))
	defer config.SetLogOutput(prev)
	log := logger.WithField("module", "pipeline")

	st := &state{}
	results := make([]StepResult, 0, len(p.steps()))
	blockedBy := make(map[string]string)
	var firstErr error

	log.Info("pipeline started")
	for _, s := range p.steps() {
		res := StepResult{Name: s.name}
		if !s.enabled {
			res.Status = StatusSkipped
			res.SkippedBecause = "disabled"
			results = append(results, res)
			continue
		}
		if upstream := blocker(s.deps, blockedBy); upstream != "" {
			res.Status = StatusSkipped
			res.SkippedBecause = upstream
			blockedBy[s.name] = upstream
			log.WithFields(logrus.Fields{"step": s.name, "upstream": upstream}).Warn("step skipped")
			results = append(results, res)
			continue
		}

		start := time.Now()
		outputs, err := s.run(ctx, st)
		res.Duration = time.Since(start)
		res.Outputs = outputs
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			blockedBy[s.name] = s.name
			if firstErr == nil {
				firstErr = fmt.Errorf("step %s failed: %w", s.name, err)
			}
			config.LogError(logger, "pipeline", "Run", s.name, nil, err)
		} else {
			res.Status = StatusOK
			log.WithFields(logrus.Fields{"step": s.name, "duration": res.Duration.String(), "outputs": len(outputs)}).Info("step done")
		}
		results = append(results, res)
	}
	if firstErr != nil {
		log.WithError(firstErr).Error("pipeline finished with errors")
		return results, firstErr
	}
	log.Info("pipeline finished")
	return results, nil
}

// blocker returns the failed step a dependency traces back to.
func blocker(deps []string, blockedBy map[string]string) string {
	for _, d := range deps {
		if upstream, ok := blockedBy[d]; ok {
			return upstream
		}
	}
	return ""
}

func (p *Runner) steps() []step {
	return []step{
		{name: StepSeed, enabled: p.opts.Seed, run: p.seed},
		{name: StepValidate, deps: []string{StepSeed}, enabled: true, run: p.validate},
		{name: StepLoad, deps: []string{StepValidate}, enabled: true, run: p.loadSales},
		{name: StepAggregate, deps: []string{StepLoad}, enabled: true, run: p.aggregate},
		{name: StepExport, deps: []string{StepAggregate}, enabled: true, run: p.export},
		{name: StepCharts, deps: []string{StepAggregate}, enabled: true, run: p.charts},
		{name: StepTextReport, deps: []string{StepAggregate}, enabled: true, run: p.textReport},
		{name: StepPDF, deps: []string{StepAggregate}, enabled: p.opts.PDF, run: p.pdf},
	}
}

func (p *Runner) out(name string) string {
	return filepath.Join(p.cfg.OutputDir, name)
}

func (p *Runner) seed(ctx context.Context, _ *state) ([]string, error) {
	res, err := loader.SeedSales(ctx, p.db, p.opts.SeedOptions)
	if err != nil {
		return nil, err
	}
	if res.Transactions == 0 && p.opts.SeedOptions.Transactions > 0 {
		return nil, errors.New("seeding inserted no transactions")
	}
	return nil, nil
}

func (p *Runner) validate(ctx context.Context, _ *state) ([]string, error) {
	return nil, database.ValidateSchema(ctx, p.db, database.SalesSchema)
}

func (p *Runner) loadSales(ctx context.Context, st *state) ([]string, error) {
	load, err := database.LoadSales(ctx, p.db)
	if err != nil {
		return nil, err
	}
	st.load = load
	return nil, nil
}

func (p *Runner) aggregate(_ context.Context, st *state) ([]string, error) {
	conv, err := currency.FromConfig(p.cfg)
	if err != nil {
		return nil, err
	}
	st.conv = conv
	st.report = aggregation.BuildReport(st.load.Rows, st.load.Dropped, p.cfg.TopN, conv, p.opts.Now)
	return nil, nil
}

func (p *Runner) export(_ context.Context, st *state) ([]string, error) {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"top_produits.csv", func(w io.Writer) error { return report.WriteTopProductsCSV(w, st.report) }},
		{"ca_total.csv", func(w io.Writer) error { return report.WriteTotalsCSV(w, st.report) }},
		{"ventes.csv", func(w io.Writer) error { return report.WriteSalesCSV(w, st.load.Rows) }},
		{"ventes.xlsx", func(w io.Writer) error { return report.WriteExcel(w, st.report, st.load.Rows) }},
		{"rapport.json", func(w io.Writer) error { return report.WriteJSON(w, st.report, st.load.Rows) }},
	}
	var outputs []string
	for _, f := range files {
		path := p.out(f.name)
		if err := report.WriteFile(path, f.write); err != nil {
			return outputs, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (p *Runner) charts(_ context.Context, st *state) ([]string, error) {
	charts := []struct {
		name string
		svg  string
	}{
		{"ventes_par_produit.svg", render.RevenueByProductChart(st.report.TopProducts, st.conv)},
		{"repartition_ca.svg", render.ShareChart(st.report.AllProducts, st.conv)},
		{"evolution_mensuelle.svg", render.MonthlyTrendChart(st.report.MonthlyTrend, st.conv)},
	}
	var outputs []string
	for _, c := range charts {
		path := p.out(c.name)
		if err := os.WriteFile(path, []byte(c.svg), 0644); err != nil {
			return outputs, fmt.Errorf("failed to write %s: %w", c.name, err)
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (p *Runner) textReport(_ context.Context, st *state) ([]string, error) {
	text := report.Text(st.report, st.conv)
	path := p.out("rapport_analyse.txt")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, err
	}
	doc, err := report.HTML(st.report, st.conv)
	if err != nil {
		return []string{path}, err
	}
	htmlPath := p.out("rapport_ventes.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0644); err != nil {
		return []string{path}, err
	}
	return []string{path, htmlPath}, nil
}

func (p *Runner) pdf(ctx context.Context, st *state) ([]string, error) {
	doc, err := report.HTML(st.report, st.conv)
	if err != nil {
		return nil, err
	}
	data, err := p.opts.Printer(ctx, doc)
	if err != nil {
		return nil, err
	}
	path := p.out("rapport_ventes.pdf")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}
