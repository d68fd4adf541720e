package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/application/service"
)

func askCmd() *cobra.Command {
	var (
		envFile string
		ticker  string
		year    int
		topK    int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question grounded in the ingested filings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), envFile, strings.Join(args, " "), ticker, year, topK)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&ticker, "ticker", "", "Restrict retrieval to one company")
	cmd.Flags().IntVar(&year, "year", 0, "Restrict retrieval to one fiscal year")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (default: 5)")

	return cmd
}

func runAsk(ctx context.Context, envFile, question, ticker string, year, topK int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	client, slogger, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close finsight client", slog.Any("error", err))
		}
	}()

	var opts []service.AnswerOption
	if ticker != "" {
		opts = append(opts, service.ForTicker(ticker))
	}
	if year > 0 {
		opts = append(opts, service.ForFiscalYear(year))
	}
	if topK > 0 {
		opts = append(opts, service.WithTopK(topK))
	}

	answer, err := client.Answers.Ask(ctx, question, opts...)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text())

	if sources := answer.Sources(); len(sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range sources {
			citation := src.Citation()
			fmt.Printf("  %s", citation.Source())
			if section := citation.Section(); section != "" {
				fmt.Printf(" | %s", section)
			}
			fmt.Printf(" (distance %.3f)\n", src.Distance())
		}
	}
	return nil
}
