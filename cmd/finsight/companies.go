package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight"
)

func companiesCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage the tracked companies",
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(envFile, func(ctx context.Context, client *finsight.Client) error {
				companies, err := client.Companies.List(ctx)
				if err != nil {
					return err
				}
				for _, company := range companies {
					fmt.Printf("%-8s %-12s %s\n", company.Ticker(), company.CIK(), company.Name())
				}
				return nil
			})(cmd, args)
		},
	}

	var (
		name string
		cik  string
	)
	add := &cobra.Command{
		Use:   "add <ticker>",
		Short: "Track a company",
		Long:  "Track a company. Name and CIK are resolved from the SEC registry when not given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(envFile, func(ctx context.Context, client *finsight.Client) error {
				company, err := client.Companies.Import(ctx, args[0], name, cik)
				if err != nil {
					return err
				}
				fmt.Printf("tracking %s (%s, CIK %s)\n", company.Ticker(), company.Name(), company.CIK())
				return nil
			})(cmd, args)
		},
	}
	add.Flags().StringVar(&name, "name", "", "Company name")
	add.Flags().StringVar(&cik, "cik", "", "SEC Central Index Key")

	remove := &cobra.Command{
		Use:   "remove <ticker>",
		Short: "Stop tracking a company and delete its corpus data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(envFile, func(ctx context.Context, client *finsight.Client) error {
				if err := client.Companies.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("removed %s\n", args[0])
				return nil
			})(cmd, args)
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

// withClient wraps a command body with config loading and client
// lifecycle management.
func withClient(envFile string, body func(context.Context, *finsight.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
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

		return body(cmd.Context(), client)
	}
}
