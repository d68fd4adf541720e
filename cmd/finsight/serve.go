package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/infrastructure/api"
	"github.com/finsight-ai/finsight/internal/config"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                       Server host to bind to (default: 0.0.0.0)
  PORT                       Server port to listen on (default: 8080)
  DATA_DIR                   Data directory (default: ~/.finsight)
  DB_URL                     Database URL (default: sqlite:///{data_dir}/finsight.db)
  LOG_LEVEL                  Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                 Log format: pretty, json (default: pretty)
  API_KEYS                   Comma-separated keys for write access
  SEC_USER_AGENT             User-Agent sent to SEC EDGAR (required: name + contact email)

  OPENAI_API_KEY             OpenAI API key
  GOOGLE_API_KEY             Google AI API key
  ANTHROPIC_API_KEY          Anthropic API key

  EMBEDDING_*                Embedding endpoint configuration
    PROVIDER                 openai or gemini (default: openai)
    MODEL                    Model identifier (default: text-embedding-ada-002)
    DIMENSION                Vector dimension (default: 1536)
    BATCH_SIZE               Texts per request
    NUM_PARALLEL_TASKS       Concurrent requests (default: 4)

  GENERATION_*               Generation endpoint configuration
    PROVIDER                 openai, gemini, or claude (default: openai)
    MODEL                    Model identifier
    MAX_TOKENS               Completion token limit (default: 500)
    TEMPERATURE              Sampling temperature (default: 0.3)

  CHUNK_MAX_TOKENS           Chunk size in tokens (default: 400)
  CHUNK_OVERLAP_TOKENS       Chunk overlap in tokens (default: 40)
  SEARCH_TOP_K               Retrieved chunks per question (default: 5)
  SEARCH_CONTEXT_TOKEN_BUDGET  Context size handed to generation (default: 2000)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	client, slogger, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close finsight client", slog.Any("error", err))
		}
	}()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting finsight", attrs...)

	apiServer := api.NewAPIServer(client, cfg.APIKeys())
	router := apiServer.Router()
	apiServer.MountRoutes()

	// Root endpoint with API info
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"finsight","version":"%s"}`, version)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	server := api.NewServer(cfg.Addr(), slogger)
	server.Router().Mount("/", router)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
