package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"salesboard/analysis"
	"salesboard/automation"
	"salesboard/config"
	"salesboard/database"
	"salesboard/loader"
	"salesboard/model"
	"salesboard/report"
)

var seedFlags struct {
	transactions int
	seed         int64
	keep         bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the sales tables and fill them with the catalogue and random sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSales()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := loader.DefaultSeedOptions()
		opts.Transactions = seedFlags.transactions
		opts.Reset = !seedFlags.keep
		if cmd.Flags().Changed("seed") {
			opts.Seed = seedFlags.seed
		}
		res, err := loader.SeedSales(cmd.Context(), db, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d produits, %d clients, %d ventes (graine %d)\n", res.Products, res.Customers, res.Transactions, opts.Seed)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the sales store has every required table and column",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.OpenReadOnly(config.GetConfig().SalesDBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.ValidateSchema(cmd.Context(), db, database.SalesSchema); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema OK")
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Append sales from a CSV file (product, customer, date, quantity)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		db, err := openSales()
		if err != nil {
			return err
		}
		defer db.Close()
		res, err := loader.ImportTransactionsCSV(cmd.Context(), db, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d ventes importées\n", res.Inserted)
		return nil
	},
}

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Print the analysis report and write top_produits.csv and ca_total.csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		db, err := database.OpenReadOnly(cfg.SalesDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := analysis.Run(cmd.Context(), db, cfg, model.RowFilter{}, time.Now())
		if err != nil {
			return err
		}
		text := report.Text(res.Report, res.Converter)
		fmt.Fprint(cmd.OutOrStdout(), text)

		if err := report.WriteFile(filepath.Join(cfg.OutputDir, "top_produits.csv"), func(w io.Writer) error {
			return report.WriteTopProductsCSV(w, res.Report)
		}); err != nil {
			return err
		}
		if err := report.WriteFile(filepath.Join(cfg.OutputDir, "ca_total.csv"), func(w io.Writer) error {
			return report.WriteTotalsCSV(w, res.Report)
		}); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(cfg.OutputDir, "rapport_analyse.txt"), []byte(text), 0644)
	},
}

var reportFlags struct {
	pdf bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the HTML report and, with --pdf, print it to PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		db, err := database.OpenReadOnly(cfg.SalesDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := analysis.Run(cmd.Context(), db, cfg, model.RowFilter{}, time.Now())
		if err != nil {
			return err
		}
		doc, err := report.HTML(res.Report, res.Converter)
		if err != nil {
			return err
		}
		htmlPath := filepath.Join(cfg.OutputDir, "rapport_ventes.html")
		if err := report.WriteFile(htmlPath, func(w io.Writer) error {
			_, err := io.WriteString(w, doc)
			return err
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), htmlPath)
		if !reportFlags.pdf {
			return nil
		}

		pdf, err := automation.PrintPDF(cmd.Context(), doc, automation.PrintOptions{ChromePath: cfg.ChromePath})
		if err != nil {
			return err
		}
		pdfPath := filepath.Join(cfg.OutputDir, "rapport_ventes.pdf")
		if err := os.WriteFile(pdfPath, pdf, 0644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pdfPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedFlags.transactions, "transactions", "n", 50, "number of random sales")
	seedCmd.Flags().Int64Var(&seedFlags.seed, "seed", 0, "random seed (default: current time)")
	seedCmd.Flags().BoolVar(&seedFlags.keep, "keep", false, "keep existing data instead of recreating the tables")
	reportCmd.Flags().BoolVar(&reportFlags.pdf, "pdf", false, "also print rapport_ventes.pdf with a headless browser")

	rootCmd.AddCommand(seedCmd, validateCmd, importCmd, analyseCmd, reportCmd)
}
