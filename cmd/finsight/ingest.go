package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/application/service"
)

func ingestCmd() *cobra.Command {
	var (
		envFile string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "ingest [ticker...]",
		Short: "Ingest 10-K filings into the corpus",
		Long: `Ingest 10-K filings into the corpus.

With tickers given, each is ingested (and tracked if new). Without
arguments, every tracked company is ingested. Ingestion is resumable:
already fetched and embedded filings are skipped, failed ones are
retried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), envFile, limit, args)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().IntVar(&limit, "limit", 0, "Recent filings per company (default: 2)")

	return cmd
}

func runIngest(ctx context.Context, envFile string, limit int, tickers []string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	var extra []finsight.Option
	if limit > 0 {
		extra = append(extra, finsight.WithIngestOptions(service.WithFilingLimit(limit)))
	}

	client, slogger, err := newClient(cfg, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close finsight client", slog.Any("error", err))
		}
	}()

	if len(tickers) == 0 {
		report, err := client.Ingest.IngestAll(ctx)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	}

	for _, ticker := range tickers {
		report, err := client.Ingest.IngestCompany(ctx, ticker)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", ticker, err)
		}
		fmt.Printf("%s:\n", ticker)
		printReport(report)
	}
	return nil
}

func printReport(report service.IngestReport) {
	fmt.Printf("companies:       %d\n", report.Companies())
	fmt.Printf("filings found:   %d\n", report.Discovered())
	fmt.Printf("filings fetched: %d\n", report.Fetched())
	fmt.Printf("chunks stored:   %d\n", report.ChunksStored())
	fmt.Printf("chunks embedded: %d\n", report.ChunksEmbedded())
	if failures := report.Failures(); len(failures) > 0 {
		fmt.Printf("failures:        %d\n", len(failures))
		for _, failure := range failures {
			fmt.Printf("  %s [%s] %s\n", failure.Accession(), failure.Kind(), failure.Reason())
		}
	}
}
