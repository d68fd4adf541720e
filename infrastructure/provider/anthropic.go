package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicDefaultModel   = "claude-sonnet-4-20250514"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicProvider generates text through the Anthropic Messages API.
// Anthropic offers no embedding endpoint, so the provider is text-only.
type AnthropicProvider struct {
	apiKey        string
	baseURL       string
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	httpClient    *http.Client
}

// AnthropicOption is a functional option for AnthropicProvider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicModel sets the Claude model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) { p.model = model }
}

// WithAnthropicMaxRetries sets the maximum retry count.
func WithAnthropicMaxRetries(n int) AnthropicOption {
	return func(p *AnthropicProvider) { p.maxRetries = n }
}

// WithAnthropicInitialDelay sets the initial retry delay.
func WithAnthropicInitialDelay(d time.Duration) AnthropicOption {
	return func(p *AnthropicProvider) { p.initialDelay = d }
}

// WithAnthropicBackoffFactor sets the backoff multiplier.
func WithAnthropicBackoffFactor(f float64) AnthropicOption {
	return func(p *AnthropicProvider) { p.backoffFactor = f }
}

// WithAnthropicTimeout sets the HTTP timeout.
func WithAnthropicTimeout(d time.Duration) AnthropicOption {
	return func(p *AnthropicProvider) { p.httpClient.Timeout = d }
}

// WithAnthropicBaseURL sets the base URL (for testing or proxies).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = url }
}

// WithAnthropicHTTPClient sets the HTTP client, e.g. one with a caching
// transport.
func WithAnthropicHTTPClient(c *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewAnthropicProvider creates a Claude provider with default settings.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		apiKey:        apiKey,
		baseURL:       anthropicDefaultBaseURL,
		model:         anthropicDefaultModel,
		maxRetries:    5,
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnthropicConfig holds configuration for the Claude provider. Zero
// values fall back to the provider defaults.
type AnthropicConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	HTTPClient    *http.Client
}

// NewAnthropicProviderFromConfig creates a provider from configuration.
func NewAnthropicProviderFromConfig(cfg AnthropicConfig) *AnthropicProvider {
	var opts []AnthropicOption
	if cfg.HTTPClient != nil {
		opts = append(opts, WithAnthropicHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithAnthropicBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, WithAnthropicModel(cfg.Model))
	}
	if cfg.Timeout != 0 {
		opts = append(opts, WithAnthropicTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries != 0 {
		opts = append(opts, WithAnthropicMaxRetries(cfg.MaxRetries))
	}
	if cfg.InitialDelay != 0 {
		opts = append(opts, WithAnthropicInitialDelay(cfg.InitialDelay))
	}
	if cfg.BackoffFactor != 0 {
		opts = append(opts, WithAnthropicBackoffFactor(cfg.BackoffFactor))
	}
	return NewAnthropicProvider(cfg.APIKey, opts...)
}

// SupportsTextGeneration returns true.
func (p *AnthropicProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns false.
func (p *AnthropicProvider) SupportsEmbedding() bool { return false }

// Close is a no-op for the Anthropic provider.
func (p *AnthropicProvider) Close() error { return nil }

// Wire types for the Messages API. The system prompt travels in a
// top-level field, not as a message.
type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []wireMessage `json:"messages"`
	System    string        `json:"system,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      messagesUsage  `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messagesError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatCompletion generates a completion using Claude.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	msgs := req.Messages()
	if len(msgs) == 0 {
		return ChatCompletionResponse{}, NewProviderError("chat_completion", 0, "no messages provided", nil)
	}

	apiReq := messagesRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens(),
	}
	if apiReq.MaxTokens == 0 {
		apiReq.MaxTokens = 4096
	}
	for _, m := range msgs {
		if m.Role() == "system" {
			apiReq.System = m.Content()
			continue
		}
		apiReq.Messages = append(apiReq.Messages, wireMessage{Role: m.Role(), Content: m.Content()})
	}

	var resp messagesResponse
	err := p.withRetry(ctx, func() error {
		var reqErr error
		resp, reqErr = p.doRequest(ctx, apiReq)
		return reqErr
	})
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	usage := NewUsage(
		resp.Usage.InputTokens,
		resp.Usage.OutputTokens,
		resp.Usage.InputTokens+resp.Usage.OutputTokens,
	)
	return NewChatCompletionResponse(text, resp.StopReason, usage), nil
}

func (p *AnthropicProvider) doRequest(ctx context.Context, req messagesRequest) (messagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return messagesResponse{}, NewProviderError("chat_completion", 0, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return messagesResponse{}, NewProviderError("chat_completion", 0, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return messagesResponse{}, NewProviderError("chat_completion", 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return messagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr messagesError
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return messagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, apiErr.Message, nil)
		}
		return messagesResponse{}, NewProviderError("chat_completion", resp.StatusCode, string(respBody), nil)
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return messagesResponse{}, NewProviderError("chat_completion", 0, "failed to unmarshal response", err)
	}
	return apiResp, nil
}

// withRetry runs fn with exponential backoff on retryable provider
// errors. Context cancellation wins over the remaining attempts.
func (p *AnthropicProvider) withRetry(ctx context.Context, fn func() error) error {
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
		if !retryableStatus(lastErr) {
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

func retryableStatus(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	switch provErr.StatusCode() {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var (
	_ TextOnlyProvider = (*AnthropicProvider)(nil)
	_ TextGenerator    = (*AnthropicProvider)(nil)
)
