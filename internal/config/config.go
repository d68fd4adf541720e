// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 8080
	DefaultLogLevel            = "INFO"
	DefaultTopK                = 5
	DefaultChunkMaxTokens      = 400
	DefaultChunkOverlapTokens  = 40
	DefaultContextTokenBudget  = 2000
	DefaultGenerationMaxTokens = 500
	DefaultTemperature         = 0.3
	DefaultEndpointTimeout     = 60 * time.Second
	DefaultMaxRetries          = 5
	DefaultInitialDelay        = 2 * time.Second
	DefaultBackoffFactor       = 2.0
	DefaultParallelTasks       = 4
	DefaultSECUserAgent        = "finsight admin@example.com"
)

// ErrInvalidConfig indicates the configuration failed startup validation.
// Validation failures are fatal: the process must not start with a
// misconfigured embedding dimension or a missing credential.
var ErrInvalidConfig = errors.New("invalid configuration")

// Provider identifies an AI service provider.
type Provider string

// Provider values.
const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
)

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, s)
	}
}

// knownModelDimensions maps embedding model identifiers to their fixed
// output dimensions. Used to catch dimension misconfiguration at startup
// instead of at query time, where a mismatch silently corrupts search.
var knownModelDimensions = map[string]int{
	"text-embedding-ada-002":    1536,
	"text-embedding-3-small":    1536,
	"text-embedding-3-large":    3072,
	"models/embedding-001":      768,
	"models/text-embedding-004": 768,
}

// KnownModelDimension returns the published output dimension for a model,
// or 0 if the model is not in the known set.
func KnownModelDimension(model string) int {
	return knownModelDimensions[model]
}

// EmbeddingConfig configures the embedding provider and model. The same
// configuration is used for indexing documents and embedding queries;
// the system never mixes vectors from two different models.
type EmbeddingConfig struct {
	provider      Provider
	model         string
	dimension     int
	baseURL       string
	batchSize     int
	parallelTasks int
	ratePerSecond float64
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// defaultEmbeddingBatchSizes holds per-provider embedding batch sizes.
var defaultEmbeddingBatchSizes = map[Provider]int{
	ProviderOpenAI: 20,
	ProviderGemini: 5,
}

// NewEmbeddingConfig creates an EmbeddingConfig with defaults for the
// given provider, model, and declared dimension.
func NewEmbeddingConfig(provider Provider, model string, dimension int) EmbeddingConfig {
	batch := defaultEmbeddingBatchSizes[provider]
	if batch == 0 {
		batch = 10
	}
	return EmbeddingConfig{
		provider:      provider,
		model:         model,
		dimension:     dimension,
		batchSize:     batch,
		parallelTasks: DefaultParallelTasks,
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
	}
}

// Provider returns the embedding provider.
func (e EmbeddingConfig) Provider() Provider { return e.provider }

// Model returns the embedding model identifier.
func (e EmbeddingConfig) Model() string { return e.model }

// Dimension returns the declared embedding output dimension.
func (e EmbeddingConfig) Dimension() int { return e.dimension }

// BaseURL returns the endpoint base URL override, if any.
func (e EmbeddingConfig) BaseURL() string { return e.baseURL }

// BatchSize returns the maximum number of texts per embedding request.
func (e EmbeddingConfig) BatchSize() int { return e.batchSize }

// ParallelTasks returns the maximum concurrent embedding requests.
func (e EmbeddingConfig) ParallelTasks() int { return e.parallelTasks }

// RatePerSecond returns the request rate limit. Zero means unlimited.
func (e EmbeddingConfig) RatePerSecond() float64 { return e.ratePerSecond }

// Timeout returns the per-request timeout.
func (e EmbeddingConfig) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count for transient failures.
func (e EmbeddingConfig) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e EmbeddingConfig) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e EmbeddingConfig) BackoffFactor() float64 { return e.backoffFactor }

// EmbeddingOption is a functional option for EmbeddingConfig.
type EmbeddingOption func(*EmbeddingConfig)

// WithEmbeddingBaseURL sets the endpoint base URL.
func WithEmbeddingBaseURL(url string) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.baseURL = url }
}

// WithEmbeddingBatchSize sets the batch size.
func WithEmbeddingBatchSize(n int) EmbeddingOption {
	return func(e *EmbeddingConfig) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithEmbeddingParallelTasks sets the concurrent request limit.
func WithEmbeddingParallelTasks(n int) EmbeddingOption {
	return func(e *EmbeddingConfig) {
		if n > 0 {
			e.parallelTasks = n
		}
	}
}

// WithEmbeddingRate sets the request rate limit in requests per second.
func WithEmbeddingRate(perSecond float64) EmbeddingOption {
	return func(e *EmbeddingConfig) {
		if perSecond > 0 {
			e.ratePerSecond = perSecond
		}
	}
}

// WithEmbeddingTimeout sets the per-request timeout.
func WithEmbeddingTimeout(d time.Duration) EmbeddingOption {
	return func(e *EmbeddingConfig) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEmbeddingRetry sets the retry policy.
func WithEmbeddingRetry(maxRetries int, initialDelay time.Duration, backoffFactor float64) EmbeddingOption {
	return func(e *EmbeddingConfig) {
		if maxRetries >= 0 {
			e.maxRetries = maxRetries
		}
		if initialDelay > 0 {
			e.initialDelay = initialDelay
		}
		if backoffFactor > 1 {
			e.backoffFactor = backoffFactor
		}
	}
}

// NewEmbeddingConfigWithOptions creates an EmbeddingConfig with options.
func NewEmbeddingConfigWithOptions(provider Provider, model string, dimension int, opts ...EmbeddingOption) EmbeddingConfig {
	e := NewEmbeddingConfig(provider, model, dimension)
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// GenerationConfig configures the answer-generation provider and model.
// It is independent of the embedding configuration: the two gateways
// share no state and may use different providers and credentials.
type GenerationConfig struct {
	provider      Provider
	model         string
	baseURL       string
	maxTokens     int
	temperature   float64
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewGenerationConfig creates a GenerationConfig with defaults.
func NewGenerationConfig(provider Provider, model string) GenerationConfig {
	return GenerationConfig{
		provider:      provider,
		model:         model,
		maxTokens:     DefaultGenerationMaxTokens,
		temperature:   DefaultTemperature,
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
	}
}

// Provider returns the generation provider.
func (g GenerationConfig) Provider() Provider { return g.provider }

// Model returns the generation model identifier.
func (g GenerationConfig) Model() string { return g.model }

// BaseURL returns the endpoint base URL override, if any.
func (g GenerationConfig) BaseURL() string { return g.baseURL }

// MaxTokens returns the maximum answer length in tokens.
func (g GenerationConfig) MaxTokens() int { return g.maxTokens }

// Temperature returns the sampling temperature.
func (g GenerationConfig) Temperature() float64 { return g.temperature }

// Timeout returns the per-request timeout.
func (g GenerationConfig) Timeout() time.Duration { return g.timeout }

// MaxRetries returns the maximum retry count for transient failures.
func (g GenerationConfig) MaxRetries() int { return g.maxRetries }

// InitialDelay returns the initial retry delay.
func (g GenerationConfig) InitialDelay() time.Duration { return g.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (g GenerationConfig) BackoffFactor() float64 { return g.backoffFactor }

// GenerationOption is a functional option for GenerationConfig.
type GenerationOption func(*GenerationConfig)

// WithGenerationBaseURL sets the endpoint base URL.
func WithGenerationBaseURL(url string) GenerationOption {
	return func(g *GenerationConfig) { g.baseURL = url }
}

// WithGenerationMaxTokens sets the maximum answer length.
func WithGenerationMaxTokens(n int) GenerationOption {
	return func(g *GenerationConfig) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithGenerationTemperature sets the sampling temperature.
func WithGenerationTemperature(t float64) GenerationOption {
	return func(g *GenerationConfig) {
		if t >= 0 {
			g.temperature = t
		}
	}
}

// WithGenerationTimeout sets the per-request timeout.
func WithGenerationTimeout(d time.Duration) GenerationOption {
	return func(g *GenerationConfig) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGenerationRetry sets the retry policy.
func WithGenerationRetry(maxRetries int, initialDelay time.Duration, backoffFactor float64) GenerationOption {
	return func(g *GenerationConfig) {
		if maxRetries >= 0 {
			g.maxRetries = maxRetries
		}
		if initialDelay > 0 {
			g.initialDelay = initialDelay
		}
		if backoffFactor > 1 {
			g.backoffFactor = backoffFactor
		}
	}
}

// NewGenerationConfigWithOptions creates a GenerationConfig with options.
func NewGenerationConfigWithOptions(provider Provider, model string, opts ...GenerationOption) GenerationConfig {
	g := NewGenerationConfig(provider, model)
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// ChunkingConfig configures document chunking. Chunk boundaries must be
// identical across ingestion runs, so these values are part of the
// persistent corpus identity. Changing them requires a re-ingest.
type ChunkingConfig struct {
	maxTokens     int
	overlapTokens int
}

// NewChunkingConfig creates a ChunkingConfig with defaults.
func NewChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		maxTokens:     DefaultChunkMaxTokens,
		overlapTokens: DefaultChunkOverlapTokens,
	}
}

// MaxTokens returns the maximum estimated tokens per chunk.
func (c ChunkingConfig) MaxTokens() int { return c.maxTokens }

// OverlapTokens returns the token overlap between consecutive chunks.
func (c ChunkingConfig) OverlapTokens() int { return c.overlapTokens }

// WithMaxTokens returns a new config with the given chunk size.
func (c ChunkingConfig) WithMaxTokens(n int) ChunkingConfig {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// WithOverlapTokens returns a new config with the given overlap.
func (c ChunkingConfig) WithOverlapTokens(n int) ChunkingConfig {
	if n >= 0 {
		c.overlapTokens = n
	}
	return c
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	topK               int
	maxDistance        float64
	contextTokenBudget int
}

// NewRetrievalConfig creates a RetrievalConfig with defaults.
func NewRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		topK:               DefaultTopK,
		contextTokenBudget: DefaultContextTokenBudget,
	}
}

// TopK returns the number of chunks retrieved per query.
func (r RetrievalConfig) TopK() int { return r.topK }

// MaxDistance returns the cosine-distance ceiling for retrieved chunks.
// Zero disables the ceiling and exactly top-K results are returned by
// raw distance.
func (r RetrievalConfig) MaxDistance() float64 { return r.maxDistance }

// ContextTokenBudget returns the maximum estimated tokens of retrieved
// context handed to the generation gateway.
func (r RetrievalConfig) ContextTokenBudget() int { return r.contextTokenBudget }

// WithTopK returns a new config with the given top-K.
func (r RetrievalConfig) WithTopK(k int) RetrievalConfig {
	if k > 0 {
		r.topK = k
	}
	return r
}

// WithMaxDistance returns a new config with the given distance ceiling.
func (r RetrievalConfig) WithMaxDistance(d float64) RetrievalConfig {
	if d > 0 {
		r.maxDistance = d
	}
	return r
}

// WithContextTokenBudget returns a new config with the given budget.
func (r RetrievalConfig) WithContextTokenBudget(n int) RetrievalConfig {
	if n > 0 {
		r.contextTokenBudget = n
	}
	return r
}

// Credentials holds per-provider API keys. A key is only required when
// its provider is selected for embedding or generation.
type Credentials struct {
	openAIKey    string
	googleKey    string
	anthropicKey string
}

// NewCredentials creates a Credentials value.
func NewCredentials(openAIKey, googleKey, anthropicKey string) Credentials {
	return Credentials{
		openAIKey:    openAIKey,
		googleKey:    googleKey,
		anthropicKey: anthropicKey,
	}
}

// OpenAIKey returns the OpenAI API key.
func (c Credentials) OpenAIKey() string { return c.openAIKey }

// GoogleKey returns the Google API key.
func (c Credentials) GoogleKey() string { return c.googleKey }

// AnthropicKey returns the Anthropic API key.
func (c Credentials) AnthropicKey() string { return c.anthropicKey }

// ForProvider returns the key configured for the given provider.
func (c Credentials) ForProvider(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return c.openAIKey
	case ProviderGemini:
		return c.googleKey
	case ProviderClaude:
		return c.anthropicKey
	default:
		return ""
	}
}

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// AppConfig holds the main application configuration. It is loaded once
// at startup, validated, and passed explicitly into constructors; there
// is no mutable global configuration state.
type AppConfig struct {
	host         string
	port         int
	dataDir      string
	dbURL        string
	httpCacheDir string
	logLevel     string
	logFormat    LogFormat
	secUserAgent string
	embedding    EmbeddingConfig
	generation   GenerationConfig
	chunking     ChunkingConfig
	retrieval    RetrievalConfig
	credentials  Credentials
	apiKeys      []string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".finsight"
	}
	return filepath.Join(home, ".finsight")
}

// NewAppConfig creates an AppConfig with defaults. The embedding and
// generation endpoints have no defaults and must be set explicitly.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:         DefaultHost,
		port:         DefaultPort,
		dataDir:      dataDir,
		dbURL:        "sqlite:///" + filepath.Join(dataDir, "finsight.db"),
		logLevel:     DefaultLogLevel,
		logFormat:    LogFormatPretty,
		secUserAgent: DefaultSECUserAgent,
		chunking:     NewChunkingConfig(),
		retrieval:    NewRetrievalConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// HTTPCacheDir returns the directory for caching provider and EDGAR
// HTTP responses to disk. Empty disables caching.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// SECUserAgent returns the User-Agent sent to SEC EDGAR.
func (c AppConfig) SECUserAgent() string { return c.secUserAgent }

// Embedding returns the embedding endpoint config.
func (c AppConfig) Embedding() EmbeddingConfig { return c.embedding }

// Generation returns the generation endpoint config.
func (c AppConfig) Generation() GenerationConfig { return c.generation }

// Chunking returns the chunking config.
func (c AppConfig) Chunking() ChunkingConfig { return c.chunking }

// Retrieval returns the retrieval config.
func (c AppConfig) Retrieval() RetrievalConfig { return c.retrieval }

// Credentials returns the provider credentials.
func (c AppConfig) Credentials() Credentials { return c.credentials }

// APIKeys returns the keys accepted by the HTTP API for write access.
// Empty means write protection is disabled.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory. The default database location
// follows the data directory unless an explicit URL was given.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if strings.HasSuffix(c.dbURL, "finsight.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "finsight.db")
		}
	}
}

// WithHTTPCacheDir enables on-disk HTTP response caching under dir.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithSECUserAgent sets the User-Agent sent to SEC EDGAR.
func WithSECUserAgent(ua string) AppConfigOption {
	return func(c *AppConfig) {
		if ua != "" {
			c.secUserAgent = ua
		}
	}
}

// WithEmbedding sets the embedding endpoint config.
func WithEmbedding(e EmbeddingConfig) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithGeneration sets the generation endpoint config.
func WithGeneration(g GenerationConfig) AppConfigOption {
	return func(c *AppConfig) { c.generation = g }
}

// WithChunking sets the chunking config.
func WithChunking(ch ChunkingConfig) AppConfigOption {
	return func(c *AppConfig) { c.chunking = ch }
}

// WithRetrieval sets the retrieval config.
func WithRetrieval(r RetrievalConfig) AppConfigOption {
	return func(c *AppConfig) { c.retrieval = r }
}

// WithCredentials sets the provider credentials.
func WithCredentials(cr Credentials) AppConfigOption {
	return func(c *AppConfig) { c.credentials = cr }
}

// WithAPIKeys sets the keys accepted by the HTTP API for write access.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks the configuration invariants that must hold before the
// process starts serving: the embedding dimension, chunking bounds, and
// credential presence for every selected provider. A violation here is a
// fatal configuration error, never deferred to query time.
func (c AppConfig) Validate() error {
	emb := c.embedding
	gen := c.generation

	if emb.Model() == "" {
		return fmt.Errorf("%w: embedding model is not configured", ErrInvalidConfig)
	}
	if gen.Model() == "" {
		return fmt.Errorf("%w: generation model is not configured", ErrInvalidConfig)
	}
	if emb.Dimension() <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", ErrInvalidConfig, emb.Dimension())
	}

	if known := KnownModelDimension(emb.Model()); known != 0 && known != emb.Dimension() {
		return fmt.Errorf(
			"%w: embedding dimension %d does not match expected dimension %d for model %s",
			ErrInvalidConfig, emb.Dimension(), known, emb.Model(),
		)
	}

	if emb.Provider() == ProviderClaude {
		return fmt.Errorf("%w: provider %s does not offer an embedding API", ErrInvalidConfig, ProviderClaude)
	}

	for _, p := range []Provider{emb.Provider(), gen.Provider()} {
		if c.credentials.ForProvider(p) == "" {
			return fmt.Errorf("%w: API key for provider %s is required but not set", ErrInvalidConfig, p)
		}
	}

	ch := c.chunking
	if ch.OverlapTokens() < 0 || ch.OverlapTokens() >= ch.MaxTokens() {
		return fmt.Errorf(
			"%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrInvalidConfig, ch.OverlapTokens(), ch.MaxTokens(),
		)
	}

	if c.retrieval.TopK() <= 0 {
		return fmt.Errorf("%w: retrieval top-k must be positive", ErrInvalidConfig)
	}

	return nil
}

// LogAttrs returns slog attributes describing the configuration.
// Credentials are reported as presence flags, never as values.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("log_level", c.logLevel),
		slog.String("embedding_provider", string(c.embedding.Provider())),
		slog.String("embedding_model", c.embedding.Model()),
		slog.Int("embedding_dimension", c.embedding.Dimension()),
		slog.String("generation_provider", string(c.generation.Provider())),
		slog.String("generation_model", c.generation.Model()),
		slog.Int("retrieval_top_k", c.retrieval.TopK()),
		slog.Bool("openai_key_set", c.credentials.OpenAIKey() != ""),
		slog.Bool("google_key_set", c.credentials.GoogleKey() != ""),
		slog.Bool("anthropic_key_set", c.credentials.AnthropicKey() != ""),
	}
}

func (c AppConfig) maskedDBURL() string {
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***"
}
