// Package provider implements AI service providers for text generation and embeddings.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedOperation indicates the provider does not support the
// requested operation (e.g. embeddings on a text-only provider).
var ErrUnsupportedOperation = errors.New("operation not supported by this provider")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TextGenerator generates chat completions.
type TextGenerator interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error)
}

// Embedder generates embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
}

// FullProvider supports both text generation and embeddings.
type FullProvider interface {
	TextGenerator
	Embedder
	SupportsTextGeneration() bool
	SupportsEmbedding() bool
	Close() error
}

// TextOnlyProvider supports text generation only.
type TextOnlyProvider interface {
	TextGenerator
	SupportsTextGeneration() bool
	SupportsEmbedding() bool
	Close() error
}

// Message is a single chat message.
type Message struct {
	role    string
	content string
}

// NewMessage creates a new Message.
func NewMessage(role, content string) Message {
	return Message{role: role, content: content}
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// Role returns the message role.
func (m Message) Role() string { return m.role }

// Content returns the message content.
func (m Message) Content() string { return m.content }

// ChatCompletionRequest is a provider-agnostic chat completion request.
type ChatCompletionRequest struct {
	messages    []Message
	maxTokens   int
	temperature float64
}

// NewChatCompletionRequest creates a request from messages.
func NewChatCompletionRequest(messages []Message) ChatCompletionRequest {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return ChatCompletionRequest{messages: msgs}
}

// WithMaxTokens returns a copy with the completion token limit set.
func (r ChatCompletionRequest) WithMaxTokens(n int) ChatCompletionRequest {
	if n > 0 {
		r.maxTokens = n
	}
	return r
}

// WithTemperature returns a copy with the sampling temperature set.
func (r ChatCompletionRequest) WithTemperature(t float64) ChatCompletionRequest {
	if t >= 0 {
		r.temperature = t
	}
	return r
}

// Messages returns the messages.
func (r ChatCompletionRequest) Messages() []Message {
	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// MaxTokens returns the completion token limit (0 means provider default).
func (r ChatCompletionRequest) MaxTokens() int { return r.maxTokens }

// Temperature returns the sampling temperature.
func (r ChatCompletionRequest) Temperature() float64 { return r.temperature }

// Usage reports token consumption for a provider call.
type Usage struct {
	promptTokens     int
	completionTokens int
	totalTokens      int
}

// NewUsage creates a Usage value.
func NewUsage(promptTokens, completionTokens, totalTokens int) Usage {
	return Usage{
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		totalTokens:      totalTokens,
	}
}

// PromptTokens returns the prompt token count.
func (u Usage) PromptTokens() int { return u.promptTokens }

// CompletionTokens returns the completion token count.
func (u Usage) CompletionTokens() int { return u.completionTokens }

// TotalTokens returns the total token count.
func (u Usage) TotalTokens() int { return u.totalTokens }

// ChatCompletionResponse is a provider-agnostic chat completion response.
type ChatCompletionResponse struct {
	content      string
	finishReason string
	usage        Usage
}

// NewChatCompletionResponse creates a response.
func NewChatCompletionResponse(content, finishReason string, usage Usage) ChatCompletionResponse {
	return ChatCompletionResponse{
		content:      content,
		finishReason: finishReason,
		usage:        usage,
	}
}

// Content returns the generated text.
func (r ChatCompletionResponse) Content() string { return r.content }

// FinishReason returns the provider's finish reason.
func (r ChatCompletionResponse) FinishReason() string { return r.finishReason }

// Usage returns the token usage.
func (r ChatCompletionResponse) Usage() Usage { return r.usage }

// EmbeddingRequest is a provider-agnostic embedding request.
type EmbeddingRequest struct {
	texts []string
}

// NewEmbeddingRequest creates a request from texts.
func NewEmbeddingRequest(texts []string) EmbeddingRequest {
	t := make([]string, len(texts))
	copy(t, texts)
	return EmbeddingRequest{texts: t}
}

// Texts returns the texts to embed.
func (r EmbeddingRequest) Texts() []string {
	t := make([]string, len(r.texts))
	copy(t, r.texts)
	return t
}

// EmbeddingResponse is a provider-agnostic embedding response.
type EmbeddingResponse struct {
	embeddings [][]float64
	usage      Usage
}

// NewEmbeddingResponse creates a response.
func NewEmbeddingResponse(embeddings [][]float64, usage Usage) EmbeddingResponse {
	return EmbeddingResponse{embeddings: embeddings, usage: usage}
}

// Embeddings returns one vector per input text, in input order.
func (r EmbeddingResponse) Embeddings() [][]float64 { return r.embeddings }

// Usage returns the token usage.
func (r EmbeddingResponse) Usage() Usage { return r.usage }

// ProviderError wraps an upstream provider failure with the operation
// and HTTP status that produced it.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("provider %s failed (HTTP %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

// Operation returns the failed operation name.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }
