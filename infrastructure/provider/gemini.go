package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiProvider implements text generation and embeddings using the
// Google Generative Language API.
type GeminiProvider struct {
	apiKey         string
	baseURL        string
	chatModel      string
	embeddingModel string
	maxRetries     int
	initialDelay   time.Duration
	backoffFactor  float64
	httpClient     *http.Client
}

// GeminiOption is a functional option for GeminiProvider.
type GeminiOption func(*GeminiProvider)

// WithGeminiChatModel sets the generation model.
func WithGeminiChatModel(model string) GeminiOption {
	return func(p *GeminiProvider) { p.chatModel = model }
}

// WithGeminiEmbeddingModel sets the embedding model.
func WithGeminiEmbeddingModel(model string) GeminiOption {
	return func(p *GeminiProvider) { p.embeddingModel = model }
}

// WithGeminiMaxRetries sets the maximum retry count.
func WithGeminiMaxRetries(n int) GeminiOption {
	return func(p *GeminiProvider) { p.maxRetries = n }
}

// WithGeminiInitialDelay sets the initial retry delay.
func WithGeminiInitialDelay(d time.Duration) GeminiOption {
	return func(p *GeminiProvider) { p.initialDelay = d }
}

// WithGeminiBackoffFactor sets the backoff multiplier.
func WithGeminiBackoffFactor(f float64) GeminiOption {
	return func(p *GeminiProvider) { p.backoffFactor = f }
}

// WithGeminiTimeout sets the HTTP timeout.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(p *GeminiProvider) { p.httpClient.Timeout = d }
}

// WithGeminiBaseURL sets the base URL (for testing or proxies).
func WithGeminiBaseURL(url string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = strings.TrimSuffix(url, "/") }
}

// WithGeminiHTTPClient sets the HTTP client, e.g. one with a caching
// transport.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(p *GeminiProvider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey string, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		apiKey:         apiKey,
		baseURL:        "https://generativelanguage.googleapis.com",
		chatModel:      "gemini-1.5-flash",
		embeddingModel: "models/embedding-001",
		maxRetries:     5,
		initialDelay:   2 * time.Second,
		backoffFactor:  2.0,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
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

// NewGeminiProviderFromConfig creates a provider from configuration.
func NewGeminiProviderFromConfig(cfg GeminiConfig) *GeminiProvider {
	opts := []GeminiOption{}
	if cfg.HTTPClient != nil {
		opts = append(opts, WithGeminiHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithGeminiBaseURL(cfg.BaseURL))
	}
	if cfg.ChatModel != "" {
		opts = append(opts, WithGeminiChatModel(cfg.ChatModel))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, WithGeminiEmbeddingModel(cfg.EmbeddingModel))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithGeminiTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, WithGeminiMaxRetries(cfg.MaxRetries))
	}
	if cfg.InitialDelay > 0 {
		opts = append(opts, WithGeminiInitialDelay(cfg.InitialDelay))
	}
	if cfg.BackoffFactor > 1 {
		opts = append(opts, WithGeminiBackoffFactor(cfg.BackoffFactor))
	}
	return NewGeminiProvider(cfg.APIKey, opts...)
}

// SupportsTextGeneration returns true.
func (p *GeminiProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns true.
func (p *GeminiProvider) SupportsEmbedding() bool { return true }

// Close is a no-op for the Gemini provider.
func (p *GeminiProvider) Close() error { return nil }

// qualifiedModel ensures the "models/" prefix the API path requires.
func qualifiedModel(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiGenerateResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
}

type geminiEmbedItem struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedItem `json:"requests"`
}

type geminiEmbedding struct {
	Values []float64 `json:"values"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ChatCompletion generates a chat completion using Gemini.
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	messages := req.Messages()
	if len(messages) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no messages provided", nil)
	}

	var system *geminiContent
	var contents []geminiContent

	for _, m := range messages {
		switch m.Role() {
		case RoleSystem:
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content()}}}
		case RoleAssistant:
			// Gemini names the assistant role "model".
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content()}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content()}}})
		}
	}

	apiReq := geminiGenerateRequest{
		SystemInstruction: system,
		Contents:          contents,
	}
	if req.MaxTokens() > 0 || req.Temperature() > 0 {
		apiReq.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature(),
			MaxOutputTokens: req.MaxTokens(),
		}
	}

	path := fmt.Sprintf("/v1beta/%s:generateContent", qualifiedModel(p.chatModel))

	var resp geminiGenerateResponse
	err := p.withRetry(ctx, func() error {
		return p.doRequest(ctx, "chat_completion", path, apiReq, &resp)
	})
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	if len(resp.Candidates) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no candidates in response", nil)
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		content += part.Text
	}

	usage := NewUsage(
		resp.UsageMetadata.PromptTokenCount,
		resp.UsageMetadata.CandidatesTokenCount,
		resp.UsageMetadata.TotalTokenCount,
	)

	return NewChatCompletionResponse(content, resp.Candidates[0].FinishReason, usage), nil
}

// Embed generates embeddings for the given texts in a single batch call.
func (p *GeminiProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}

	model := qualifiedModel(p.embeddingModel)
	items := make([]geminiEmbedItem, len(texts))
	for i, text := range texts {
		items[i] = geminiEmbedItem{
			Model:   model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	path := fmt.Sprintf("/v1beta/%s:batchEmbedContents", model)

	var resp geminiBatchEmbedResponse
	err := p.withRetry(ctx, func() error {
		if err := p.doRequest(ctx, "embedding", path, geminiBatchEmbedRequest{Requests: items}, &resp); err != nil {
			return err
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Embeddings), len(texts))
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*ProviderError); !ok {
			err = NewProviderError("embedding", 0, err.Error(), err)
		}
		return EmbeddingResponse{}, err
	}

	embeddings := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = e.Values
	}

	return NewEmbeddingResponse(embeddings, NewUsage(0, 0, 0)), nil
}

// doRequest performs an HTTP request against the Generative Language API.
func (p *GeminiProvider) doRequest(ctx context.Context, operation, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewProviderError(operation, 0, "failed to marshal request", err)
	}

	url := p.baseURL + path + "?key=" + p.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NewProviderError(operation, 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return NewProviderError(operation, 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewProviderError(operation, resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return NewProviderError(operation, resp.StatusCode, apiErr.Error.Message, nil)
		}
		return NewProviderError(operation, resp.StatusCode, string(respBody), nil)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewProviderError(operation, 0, "failed to unmarshal response", err)
	}

	return nil
}

// withRetry executes the function with exponential backoff retry.
func (p *GeminiProvider) withRetry(ctx context.Context, fn func() error) error {
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

		if !p.isRetryable(lastErr) {
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

// isRetryable determines if an error should be retried.
func (p *GeminiProvider) isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}
	return retryableStatus(err)
}

// Ensure GeminiProvider implements the interfaces.
var (
	_ FullProvider  = (*GeminiProvider)(nil)
	_ TextGenerator = (*GeminiProvider)(nil)
	_ Embedder      = (*GeminiProvider)(nil)
)
