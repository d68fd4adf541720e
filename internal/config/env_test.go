package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars unsets every variable this package reads so defaults
// from the host environment cannot leak into assertions.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		switch {
		case strings.HasPrefix(key, "EMBEDDING_"),
			strings.HasPrefix(key, "GENERATION_"),
			strings.HasPrefix(key, "CHUNK_"),
			strings.HasPrefix(key, "SEARCH_"),
			strings.HasPrefix(key, "SEC_"):
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	for _, key := range []string{
		"HOST", "PORT", "DATA_DIR", "DB_URL", "HTTP_CACHE_DIR",
		"LOG_LEVEL", "LOG_FORMAT",
		"OPENAI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "openai", cfg.Generation.Provider)
	assert.Equal(t, 500, cfg.Generation.MaxTokens)
	assert.Equal(t, 0.3, cfg.Generation.Temperature)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 0.0, cfg.Search.MaxDistance)
	assert.Equal(t, 400, cfg.Chunk.MaxTokens)
	assert.Equal(t, 40, cfg.Chunk.OverlapTokens)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// Struct tag defaults must be literals, so this keeps them in sync
	// with the constants in config.go.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTopK, cfg.Search.TopK)
	assert.Equal(t, DefaultChunkMaxTokens, cfg.Chunk.MaxTokens)
	assert.Equal(t, DefaultChunkOverlapTokens, cfg.Chunk.OverlapTokens)
	assert.Equal(t, DefaultContextTokenBudget, cfg.Search.ContextTokenBudget)
	assert.Equal(t, DefaultGenerationMaxTokens, cfg.Generation.MaxTokens)
	assert.Equal(t, DefaultTemperature, cfg.Generation.Temperature)
	assert.Equal(t, DefaultEndpointTimeout.Seconds(), cfg.Embedding.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.Embedding.MaxRetries)
	assert.Equal(t, DefaultInitialDelay.Seconds(), cfg.Embedding.InitialDelay)
	assert.Equal(t, DefaultBackoffFactor, cfg.Embedding.BackoffFactor)
	assert.Equal(t, DefaultParallelTasks, cfg.Embedding.NumParallelTasks)
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_URL", "postgres://localhost/finsight")
	t.Setenv("EMBEDDING_PROVIDER", "GEMINI")
	t.Setenv("EMBEDDING_MODEL", "models/embedding-001")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("GENERATION_PROVIDER", "CLAUDE")
	t.Setenv("GENERATION_MODEL", "claude-sonnet-4-5")
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("SEARCH_MAX_DISTANCE", "0.5")
	t.Setenv("HTTP_CACHE_DIR", "/tmp/finsight-cache")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres://localhost/finsight", cfg.DBURL)
	assert.Equal(t, "/tmp/finsight-cache", cfg.HTTPCacheDir)
	assert.Equal(t, "GEMINI", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "CLAUDE", cfg.Generation.Provider)
	assert.Equal(t, 8, cfg.Search.TopK)
	assert.Equal(t, 0.5, cfg.Search.MaxDistance)
}

func TestToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_PROVIDER", "GEMINI")
	t.Setenv("EMBEDDING_MODEL", "models/embedding-001")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("GENERATION_PROVIDER", "claude")
	t.Setenv("GENERATION_MODEL", "claude-sonnet-4-5")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("EMBEDDING_TIMEOUT", "30")
	t.Setenv("SEARCH_TOP_K", "3")
	t.Setenv("HTTP_CACHE_DIR", "/tmp/finsight-cache")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg, err := envCfg.ToAppConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Embedding().Provider())
	assert.Equal(t, "models/embedding-001", cfg.Embedding().Model())
	assert.Equal(t, 768, cfg.Embedding().Dimension())
	assert.Equal(t, 30*time.Second, cfg.Embedding().Timeout())
	assert.Equal(t, ProviderClaude, cfg.Generation().Provider())
	assert.Equal(t, 3, cfg.Retrieval().TopK())
	assert.Equal(t, "/tmp/finsight-cache", cfg.HTTPCacheDir())
	assert.Equal(t, "g-key", cfg.Credentials().GoogleKey())
	assert.Equal(t, "a-key", cfg.Credentials().AnthropicKey())

	require.NoError(t, cfg.Validate())
}

func TestToAppConfig_BadProvider(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_PROVIDER", "cohere")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	_, err = envCfg.ToAppConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	envFile := dir + "/.env"
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OPENAI_API_KEY=sk-from-file\nSEARCH_TOP_K=7\n",
	), 0o644))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.Credentials().OpenAIKey())
	assert.Equal(t, 7, cfg.Retrieval().TopK())
}

func TestLoadConfig_MissingDotEnvIsNotAnError(t *testing.T) {
	clearEnvVars(t)

	_, err := LoadConfig("/nonexistent/.env")
	require.NoError(t, err)
}

func TestEmbeddingEnv_BatchSizeDefaultPerProvider(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("EMBEDDING_MODEL", "models/embedding-001")
	t.Setenv("EMBEDDING_DIMENSION", "768")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	emb, err := envCfg.Embedding.ToEmbeddingConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, emb.BatchSize())

	t.Setenv("EMBEDDING_BATCH_SIZE", "12")
	envCfg, err = LoadFromEnv()
	require.NoError(t, err)

	emb, err = envCfg.Embedding.ToEmbeddingConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, emb.BatchSize())
}
