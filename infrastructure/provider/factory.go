package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/domain/search"
	"github.com/finsight-ai/finsight/internal/config"
)

// endpointHTTPClient builds an HTTP client over the given transport
// with the endpoint's timeout. A nil transport means no override: the
// provider keeps its own default client.
func endpointHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	if transport == nil {
		return nil
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// NewEmbedderFromConfig builds the embedding provider selected by the
// configuration. A non-nil transport (e.g. a CachingTransport) is
// installed under the endpoint's timeout.
func NewEmbedderFromConfig(cfg config.EmbeddingConfig, creds config.Credentials, transport http.RoundTripper) (Embedder, error) {
	switch cfg.Provider() {
	case config.ProviderOpenAI:
		return NewOpenAIProviderFromConfig(OpenAIConfig{
			APIKey:         creds.OpenAIKey(),
			BaseURL:        cfg.BaseURL(),
			EmbeddingModel: cfg.Model(),
			Timeout:        cfg.Timeout(),
			MaxRetries:     cfg.MaxRetries(),
			InitialDelay:   cfg.InitialDelay(),
			BackoffFactor:  cfg.BackoffFactor(),
			HTTPClient:     endpointHTTPClient(transport, cfg.Timeout()),
		}), nil
	case config.ProviderGemini:
		return NewGeminiProviderFromConfig(GeminiConfig{
			APIKey:         creds.GoogleKey(),
			BaseURL:        cfg.BaseURL(),
			EmbeddingModel: cfg.Model(),
			Timeout:        cfg.Timeout(),
			MaxRetries:     cfg.MaxRetries(),
			InitialDelay:   cfg.InitialDelay(),
			BackoffFactor:  cfg.BackoffFactor(),
			HTTPClient:     endpointHTTPClient(transport, cfg.Timeout()),
		}), nil
	default:
		return nil, fmt.Errorf("%w: no embedding support for provider %s", ErrUnsupportedOperation, cfg.Provider())
	}
}

// NewGeneratorFromConfig builds the text generation provider selected by
// the configuration. A non-nil transport (e.g. a CachingTransport) is
// installed under the endpoint's timeout.
func NewGeneratorFromConfig(cfg config.GenerationConfig, creds config.Credentials, transport http.RoundTripper) (TextGenerator, error) {
	switch cfg.Provider() {
	case config.ProviderOpenAI:
		return NewOpenAIProviderFromConfig(OpenAIConfig{
			APIKey:        creds.OpenAIKey(),
			BaseURL:       cfg.BaseURL(),
			ChatModel:     cfg.Model(),
			Timeout:       cfg.Timeout(),
			MaxRetries:    cfg.MaxRetries(),
			InitialDelay:  cfg.InitialDelay(),
			BackoffFactor: cfg.BackoffFactor(),
			HTTPClient:    endpointHTTPClient(transport, cfg.Timeout()),
		}), nil
	case config.ProviderGemini:
		return NewGeminiProviderFromConfig(GeminiConfig{
			APIKey:        creds.GoogleKey(),
			BaseURL:       cfg.BaseURL(),
			ChatModel:     cfg.Model(),
			Timeout:       cfg.Timeout(),
			MaxRetries:    cfg.MaxRetries(),
			InitialDelay:  cfg.InitialDelay(),
			BackoffFactor: cfg.BackoffFactor(),
			HTTPClient:    endpointHTTPClient(transport, cfg.Timeout()),
		}), nil
	case config.ProviderClaude:
		return NewAnthropicProviderFromConfig(AnthropicConfig{
			APIKey:        creds.AnthropicKey(),
			BaseURL:       cfg.BaseURL(),
			Model:         cfg.Model(),
			Timeout:       cfg.Timeout(),
			MaxRetries:    cfg.MaxRetries(),
			InitialDelay:  cfg.InitialDelay(),
			BackoffFactor: cfg.BackoffFactor(),
			HTTPClient:    endpointHTTPClient(transport, cfg.Timeout()),
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider())
	}
}

// TextEmbedder adapts a provider Embedder to the domain search.Embedder
// interface, applying an optional request rate limit.
type TextEmbedder struct {
	provider Embedder
	limiter  *rate.Limiter
}

// NewTextEmbedder creates a TextEmbedder. ratePerSecond <= 0 disables
// rate limiting.
func NewTextEmbedder(p Embedder, ratePerSecond float64) *TextEmbedder {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &TextEmbedder{provider: p, limiter: limiter}
}

// Embed converts one batch of texts to vectors.
func (e *TextEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := e.provider.Embed(ctx, NewEmbeddingRequest(texts))
	if err != nil {
		return nil, err
	}
	return resp.Embeddings(), nil
}

// PromptGenerator adapts a provider TextGenerator to the domain
// search.Generator interface with fixed sampling parameters.
type PromptGenerator struct {
	provider    TextGenerator
	maxTokens   int
	temperature float64
}

// NewPromptGenerator creates a PromptGenerator.
func NewPromptGenerator(p TextGenerator, maxTokens int, temperature float64) *PromptGenerator {
	return &PromptGenerator{
		provider:    p,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Generate produces an answer for the given system and user prompts.
func (g *PromptGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	req := NewChatCompletionRequest([]Message{
		SystemMessage(system),
		UserMessage(user),
	}).WithMaxTokens(g.maxTokens).WithTemperature(g.temperature)

	resp, err := g.provider.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// Ensure the adapters implement the domain interfaces.
var (
	_ search.Embedder  = (*TextEmbedder)(nil)
	_ search.Generator = (*PromptGenerator)(nil)
)
