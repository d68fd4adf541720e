// Package main is the entry point for the finsight CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finsight",
		Short: "Finsight SEC filing question answering",
		Long:  `Finsight ingests SEC 10-K filings into a vector corpus and answers natural-language questions grounded in the retrieved filing text.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(ingestCmd())
	cmd.AddCommand(askCmd())
	cmd.AddCommand(companiesCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
