package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openaiDefaultChatModel      = "gpt-4o-mini"
	openaiDefaultEmbeddingModel = "text-embedding-ada-002"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than requested. Retryable: some OpenAI-compatible gateways
// return 200 with partial or empty data under transient load.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates HTTP 200 with an error body
// instead of embedding data. Routing gateways (e.g. OpenRouter) do this
// when every upstream is down: zero data, zero usage, empty model.
// Retrying is futile in that case.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIProvider talks to the OpenAI API (or any compatible endpoint)
// for both chat completion and embeddings.
type OpenAIProvider struct {
	client            *openai.Client
	chatModel         string
	embeddingModel    string
	maxRetries        int
	initialDelay      time.Duration
	backoffFactor     float64
	supportsText      bool
	supportsEmbedding bool
}

// OpenAIOption is a functional option for OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithChatModel sets the chat completion model.
func WithChatModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.chatModel = model
		p.supportsText = true
	}
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.embeddingModel = model
		p.supportsEmbedding = true
	}
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) OpenAIOption {
	return func(p *OpenAIProvider) { p.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) OpenAIOption {
	return func(p *OpenAIProvider) { p.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) OpenAIOption {
	return func(p *OpenAIProvider) { p.backoffFactor = f }
}

// NewOpenAIProvider creates an OpenAI provider with default models and
// retry behavior.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	return newOpenAIProvider(openai.NewClient(apiKey), opts...)
}

func newOpenAIProvider(client *openai.Client, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		client:            client,
		chatModel:         openaiDefaultChatModel,
		embeddingModel:    openaiDefaultEmbeddingModel,
		maxRetries:        5,
		initialDelay:      2 * time.Second,
		backoffFactor:     2.0,
		supportsText:      true,
		supportsEmbedding: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	InitialDelay   time.Duration
	BackoffFactor  float64
	HTTPClient     *http.Client
}

// NewOpenAIProviderFromConfig creates a provider from configuration.
// Zero-valued fields fall back to the provider defaults.
func NewOpenAIProviderFromConfig(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var opts []OpenAIOption
	if cfg.ChatModel != "" {
		opts = append(opts, WithChatModel(cfg.ChatModel))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, WithEmbeddingModel(cfg.EmbeddingModel))
	}
	if cfg.MaxRetries != 0 {
		opts = append(opts, WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.InitialDelay != 0 {
		opts = append(opts, WithInitialDelay(cfg.InitialDelay))
	}
	if cfg.BackoffFactor != 0 {
		opts = append(opts, WithBackoffFactor(cfg.BackoffFactor))
	}

	return newOpenAIProvider(openai.NewClientWithConfig(clientCfg), opts...)
}

// SupportsTextGeneration reports whether chat completion is available.
func (p *OpenAIProvider) SupportsTextGeneration() bool { return p.supportsText }

// SupportsEmbedding reports whether embedding is available.
func (p *OpenAIProvider) SupportsEmbedding() bool { return p.supportsEmbedding }

// Close is a no-op for the OpenAI provider.
func (p *OpenAIProvider) Close() error { return nil }

// ChatCompletion generates a chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	if !p.supportsText {
		return ChatCompletionResponse{}, ErrUnsupportedOperation
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages()))
	for i, m := range req.Messages() {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role(), Content: m.Content()}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: messages,
	}
	if req.MaxTokens() > 0 {
		chatReq.MaxTokens = req.MaxTokens()
	}
	if req.Temperature() > 0 {
		chatReq.Temperature = float32(req.Temperature())
	}

	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return ChatCompletionResponse{}, wrapOpenAIError("chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	usage := NewUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	return NewChatCompletionResponse(
		resp.Choices[0].Message.Content,
		string(resp.Choices[0].FinishReason),
		usage,
	), nil
}

// Embed generates embeddings for the given texts in a single API call.
// Batching to fit provider limits happens upstream, in the search layer.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	if !p.supportsEmbedding {
		return EmbeddingResponse{}, ErrUnsupportedOperation
	}

	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}

	embedReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, embedReq)
		if callErr != nil {
			return callErr
		}
		return checkEmbeddingResponse(resp, len(texts))
	})
	if err != nil {
		return EmbeddingResponse{}, wrapOpenAIError("embedding", err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}

	usage := NewUsage(resp.Usage.PromptTokens, 0, resp.Usage.TotalTokens)
	return NewEmbeddingResponse(embeddings, usage), nil
}

// checkEmbeddingResponse validates a 200 response body. The go-openai
// library silently parses some gateway error bodies as an empty
// response, so a vector count mismatch has to be caught here.
func checkEmbeddingResponse(resp openai.EmbeddingResponse, want int) error {
	if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
		return fmt.Errorf(
			"%w: HTTP 200 with no embedding data, no model, and zero usage",
			errUpstreamProviderFailure,
		)
	}
	if len(resp.Data) != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), want)
	}
	return nil
}

// withRetry executes fn with exponential backoff on retryable errors.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !openaiRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func openaiRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	// RequestError covers transport-level failures.
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

// wrapOpenAIError converts SDK errors into ProviderError, preserving
// the HTTP status when the SDK exposes one.
func wrapOpenAIError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var (
	_ FullProvider  = (*OpenAIProvider)(nil)
	_ TextGenerator = (*OpenAIProvider)(nil)
	_ Embedder      = (*OpenAIProvider)(nil)
)
