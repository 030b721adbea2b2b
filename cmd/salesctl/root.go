package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"salesboard/config"
	"salesboard/database"
)

var rootFlags struct {
	configPath string
	logFormat  string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:           "salesctl",
	Short:         "Sales store and analysis tooling",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootFlags.configPath != "" {
			config.SetConfigPath(rootFlags.configPath)
		}
		if rootFlags.logFormat != "" || rootFlags.logLevel != "" {
			config.ConfigureLogger(rootFlags.logFormat, rootFlags.logLevel)
		}
		if _, err := config.LoadConfig(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "config file (default ./salesboard_config.json)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func openSales() (*sqlx.DB, error) {
	return database.Open(config.GetConfig().SalesDBPath)
}
