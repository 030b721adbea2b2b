package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"salesboard/config"
	"salesboard/loader"
	"salesboard/pipeline"
)

var pipelineFlags struct {
	seed         bool
	transactions int
	pdf          bool
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run seed (optional), validate, load, aggregate, exports, charts, reports and PDF (optional)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSales()
		if err != nil {
			return err
		}
		defer db.Close()

		seedOpts := loader.DefaultSeedOptions()
		seedOpts.Transactions = pipelineFlags.transactions
		results, runErr := pipeline.New(db, config.GetConfig(), pipeline.Options{
			Seed:        pipelineFlags.seed,
			SeedOptions: seedOpts,
			PDF:         pipelineFlags.pdf,
		}).Run(cmd.Context())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ÉTAPE\tSTATUT\tDURÉE\tDÉTAIL")
		for _, r := range results {
			detail := ""
			switch r.Status {
			case pipeline.StatusFailed:
				detail = r.Err.Error()
			case pipeline.StatusSkipped:
				detail = "ignorée: " + r.SkippedBecause
			default:
				detail = fmt.Sprintf("%d fichier(s)", len(r.Outputs))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Status, r.Duration.Round(time.Millisecond), detail)
		}
		tw.Flush()
		return runErr
	},
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineFlags.seed, "seed", false, "recreate the store with random sales first")
	pipelineCmd.Flags().IntVarP(&pipelineFlags.transactions, "transactions", "n", 50, "number of random sales when seeding")
	pipelineCmd.Flags().BoolVar(&pipelineFlags.pdf, "pdf", false, "print the PDF report with a headless browser")
	rootCmd.AddCommand(pipelineCmd)
}
