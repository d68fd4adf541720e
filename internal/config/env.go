// Package config provides application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., EMBEDDING_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.finsight
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/finsight.db
	DBURL string `envconfig:"DB_URL"`

	// HTTPCacheDir is the directory for caching HTTP responses to disk.
	// Useful for development to avoid repeated calls to EDGAR and the
	// embedding/generation providers. Empty disables caching.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// OpenAIAPIKey is the OpenAI API key.
	// Env: OPENAI_API_KEY
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// GoogleAPIKey is the Google AI API key.
	// Env: GOOGLE_API_KEY
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`

	// AnthropicAPIKey is the Anthropic API key.
	// Env: ANTHROPIC_API_KEY
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// SECUserAgent identifies this client to SEC EDGAR. The SEC requires
	// a User-Agent with a contact address on every request.
	// Env: SEC_USER_AGENT
	SECUserAgent string `envconfig:"SEC_USER_AGENT"`

	// APIKeys is a comma-separated list of keys accepted by the HTTP API
	// for write access. Empty disables write protection.
	// Env: API_KEYS
	APIKeys []string `envconfig:"API_KEYS"`

	// Embedding configures the embedding endpoint.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`

	// Generation configures the answer-generation endpoint.
	Generation GenerationEnv `envconfig:"GENERATION"`

	// Chunk configures document chunking.
	Chunk ChunkEnv `envconfig:"CHUNK"`

	// Search configures retrieval.
	Search SearchEnv `envconfig:"SEARCH"`
}

// EmbeddingEnv holds environment configuration for the embedding endpoint.
type EmbeddingEnv struct {
	// Provider selects the embedding provider (openai or gemini).
	// Env: EMBEDDING_PROVIDER (default: openai)
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// Model is the embedding model identifier.
	// Env: EMBEDDING_MODEL (default: text-embedding-ada-002)
	Model string `envconfig:"MODEL" default:"text-embedding-ada-002"`

	// Dimension is the embedding output dimension. Must match the model.
	// Env: EMBEDDING_DIMENSION (default: 1536)
	Dimension int `envconfig:"DIMENSION" default:"1536"`

	// BaseURL overrides the endpoint base URL.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// BatchSize is the number of texts per embedding request.
	// Env: EMBEDDING_BATCH_SIZE (0 selects a per-provider default)
	BatchSize int `envconfig:"BATCH_SIZE"`

	// NumParallelTasks is the number of concurrent embedding requests.
	// Env: EMBEDDING_NUM_PARALLEL_TASKS (default: 4)
	NumParallelTasks int `envconfig:"NUM_PARALLEL_TASKS" default:"4"`

	// RatePerSecond is the request rate limit. Zero means unlimited.
	// Env: EMBEDDING_RATE_PER_SECOND
	RatePerSecond float64 `envconfig:"RATE_PER_SECOND"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EMBEDDING_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: EMBEDDING_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// GenerationEnv holds environment configuration for the generation endpoint.
type GenerationEnv struct {
	// Provider selects the generation provider (openai, gemini, or claude).
	// Env: GENERATION_PROVIDER (default: openai)
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// Model is the generation model identifier.
	// Env: GENERATION_MODEL (default: gpt-4o-mini)
	Model string `envconfig:"MODEL" default:"gpt-4o-mini"`

	// BaseURL overrides the endpoint base URL.
	// Env: GENERATION_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// MaxTokens is the maximum answer length in tokens.
	// Env: GENERATION_MAX_TOKENS (default: 500)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"500"`

	// Temperature is the sampling temperature.
	// Env: GENERATION_TEMPERATURE (default: 0.3)
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.3"`

	// Timeout is the request timeout in seconds.
	// Env: GENERATION_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: GENERATION_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: GENERATION_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: GENERATION_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// ChunkEnv holds environment configuration for document chunking.
type ChunkEnv struct {
	// MaxTokens is the maximum estimated tokens per chunk.
	// Env: CHUNK_MAX_TOKENS (default: 400)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"400"`

	// OverlapTokens is the token overlap between consecutive chunks.
	// Env: CHUNK_OVERLAP_TOKENS (default: 40)
	OverlapTokens int `envconfig:"OVERLAP_TOKENS" default:"40"`
}

// SearchEnv holds environment configuration for retrieval.
type SearchEnv struct {
	// TopK is the number of chunks retrieved per query.
	// Env: SEARCH_TOP_K (default: 5)
	TopK int `envconfig:"TOP_K" default:"5"`

	// MaxDistance is the cosine-distance ceiling for retrieved chunks.
	// Zero disables the ceiling.
	// Env: SEARCH_MAX_DISTANCE
	MaxDistance float64 `envconfig:"MAX_DISTANCE"`

	// ContextTokenBudget is the maximum estimated tokens of retrieved
	// context sent to the generation model.
	// Env: SEARCH_CONTEXT_TOKEN_BUDGET (default: 2000)
	ContextTokenBudget int `envconfig:"CONTEXT_TOKEN_BUDGET" default:"2000"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "FINSIGHT" would require FINSIGHT_DATA_DIR
// instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig. Provider names are
// validated here; everything else is validated by AppConfig.Validate.
func (e EnvConfig) ToAppConfig() (AppConfig, error) {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.HTTPCacheDir != "" {
		cfg = cfg.Apply(WithHTTPCacheDir(e.HTTPCacheDir))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.SECUserAgent != "" {
		cfg = cfg.Apply(WithSECUserAgent(e.SECUserAgent))
	}
	if len(e.APIKeys) > 0 {
		cfg = cfg.Apply(WithAPIKeys(e.APIKeys))
	}

	cfg = cfg.Apply(WithCredentials(NewCredentials(e.OpenAIAPIKey, e.GoogleAPIKey, e.AnthropicAPIKey)))

	emb, err := e.Embedding.ToEmbeddingConfig()
	if err != nil {
		return AppConfig{}, fmt.Errorf("embedding endpoint: %w", err)
	}
	cfg = cfg.Apply(WithEmbedding(emb))

	gen, err := e.Generation.ToGenerationConfig()
	if err != nil {
		return AppConfig{}, fmt.Errorf("generation endpoint: %w", err)
	}
	cfg = cfg.Apply(WithGeneration(gen))

	cfg = cfg.Apply(WithChunking(e.Chunk.ToChunkingConfig()))
	cfg = cfg.Apply(WithRetrieval(e.Search.ToRetrievalConfig()))

	return cfg, nil
}

// ToEmbeddingConfig converts EmbeddingEnv to EmbeddingConfig.
func (e EmbeddingEnv) ToEmbeddingConfig() (EmbeddingConfig, error) {
	provider, err := ParseProvider(e.Provider)
	if err != nil {
		return EmbeddingConfig{}, err
	}

	opts := []EmbeddingOption{
		WithEmbeddingParallelTasks(e.NumParallelTasks),
		WithEmbeddingTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithEmbeddingRetry(e.MaxRetries, time.Duration(e.InitialDelay*float64(time.Second)), e.BackoffFactor),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithEmbeddingBaseURL(e.BaseURL))
	}
	if e.BatchSize > 0 {
		opts = append(opts, WithEmbeddingBatchSize(e.BatchSize))
	}
	if e.RatePerSecond > 0 {
		opts = append(opts, WithEmbeddingRate(e.RatePerSecond))
	}

	return NewEmbeddingConfigWithOptions(provider, e.Model, e.Dimension, opts...), nil
}

// ToGenerationConfig converts GenerationEnv to GenerationConfig.
func (g GenerationEnv) ToGenerationConfig() (GenerationConfig, error) {
	provider, err := ParseProvider(g.Provider)
	if err != nil {
		return GenerationConfig{}, err
	}

	opts := []GenerationOption{
		WithGenerationMaxTokens(g.MaxTokens),
		WithGenerationTemperature(g.Temperature),
		WithGenerationTimeout(time.Duration(g.Timeout * float64(time.Second))),
		WithGenerationRetry(g.MaxRetries, time.Duration(g.InitialDelay*float64(time.Second)), g.BackoffFactor),
	}
	if g.BaseURL != "" {
		opts = append(opts, WithGenerationBaseURL(g.BaseURL))
	}

	return NewGenerationConfigWithOptions(provider, g.Model, opts...), nil
}

// ToChunkingConfig converts ChunkEnv to ChunkingConfig.
func (c ChunkEnv) ToChunkingConfig() ChunkingConfig {
	return NewChunkingConfig().
		WithMaxTokens(c.MaxTokens).
		WithOverlapTokens(c.OverlapTokens)
}

// ToRetrievalConfig converts SearchEnv to RetrievalConfig.
func (s SearchEnv) ToRetrievalConfig() RetrievalConfig {
	return NewRetrievalConfig().
		WithTopK(s.TopK).
		WithMaxDistance(s.MaxDistance).
		WithContextTokenBudget(s.ContextTokenBudget)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
