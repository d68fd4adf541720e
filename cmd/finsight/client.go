package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/finsight-ai/finsight"
	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/log"
)

// newClient builds a finsight Client from the application config. The
// returned logger is also installed as the process default.
func newClient(cfg config.AppConfig, extra ...finsight.Option) (*finsight.Client, *slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	logger.SetDefault()
	slogger := logger.Slog()

	opts := []finsight.Option{
		finsight.WithConfig(cfg),
		finsight.WithLogger(slogger),
	}
	opts = append(opts, storageOption(cfg))
	if keys := cfg.APIKeys(); len(keys) > 0 {
		opts = append(opts, finsight.WithAPIKeys(keys...))
	}
	opts = append(opts, extra...)

	client, err := finsight.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create finsight client: %w", err)
	}
	return client, slogger, nil
}

// storageOption maps the configured database URL to a storage option.
func storageOption(cfg config.AppConfig) finsight.Option {
	dbURL := cfg.DBURL()
	if dbURL != "" && !isSQLite(dbURL) {
		return finsight.WithPostgres(dbURL)
	}

	dbPath := cfg.DataDir() + "/finsight.db"
	if dbURL != "" && isSQLite(dbURL) {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}
	return finsight.WithSQLite(dbPath)
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
