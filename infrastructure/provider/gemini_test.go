package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGeminiServer mimics the Generative Language API endpoints used by the
// provider: :generateContent and :batchEmbedContents.
func fakeGeminiServer(t *testing.T, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		if r.URL.Query().Get("key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key missing","status":"UNAUTHENTICATED"}}`))
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, ":batchEmbedContents"):
			var req geminiBatchEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			embeddings := make([]geminiEmbedding, len(req.Requests))
			for i := range req.Requests {
				embeddings[i] = geminiEmbedding{Values: []float64{0.1, 0.2, 0.3}}
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(geminiBatchEmbedResponse{Embeddings: embeddings})

		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			var req geminiGenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			resp := geminiGenerateResponse{
				Candidates: []geminiCandidate{{
					Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: "generated answer"}}},
					FinishReason: "STOP",
				}},
				UsageMetadata: geminiUsage{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGeminiProvider_ChatCompletion(t *testing.T) {
	var counter atomic.Int64
	srv := fakeGeminiServer(t, &counter)
	defer srv.Close()

	p := NewGeminiProvider("test-key", WithGeminiBaseURL(srv.URL))

	req := NewChatCompletionRequest([]Message{
		SystemMessage("you are helpful"),
		UserMessage("hello"),
	}).WithMaxTokens(100).WithTemperature(0.3)

	resp, err := p.ChatCompletion(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "generated answer", resp.Content())
	require.Equal(t, "STOP", resp.FinishReason())
	require.Equal(t, 15, resp.Usage().TotalTokens())
	require.Equal(t, int64(1), counter.Load())
}

func TestGeminiProvider_ChatCompletionNoMessages(t *testing.T) {
	p := NewGeminiProvider("test-key")

	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest(nil))
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "chat_completion", provErr.Operation())
}

func TestGeminiProvider_EmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeGeminiServer(t, &counter)
	defer srv.Close()

	p := NewGeminiProvider("test-key", WithGeminiBaseURL(srv.URL))

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	require.Empty(t, resp.Embeddings())
	require.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestGeminiProvider_EmbedBatch(t *testing.T) {
	var counter atomic.Int64
	srv := fakeGeminiServer(t, &counter)
	defer srv.Close()

	p := NewGeminiProvider("test-key", WithGeminiBaseURL(srv.URL))

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"one", "two", "three"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 3)
	require.Len(t, resp.Embeddings()[0], 3)
	require.Equal(t, int64(1), counter.Load(), "batch should be one request")
}

func TestGeminiProvider_EmbedModelPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req geminiBatchEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, item := range req.Requests {
			require.Equal(t, "models/embedding-001", item.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiBatchEmbedResponse{
			Embeddings: []geminiEmbedding{{Values: []float64{0.1}}},
		})
	}))
	defer srv.Close()

	// The bare model name gets the models/ prefix added.
	p := NewGeminiProvider("test-key",
		WithGeminiBaseURL(srv.URL),
		WithGeminiEmbeddingModel("embedding-001"),
	)

	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	require.NoError(t, err)
	require.Equal(t, "/v1beta/models/embedding-001:batchEmbedContents", gotPath)
}

func TestGeminiProvider_EmbedCountMismatchRetries(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)

		var req geminiBatchEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		// Short-change the first response, then return the full batch.
		embeddings := []geminiEmbedding{}
		if n > 1 {
			embeddings = make([]geminiEmbedding, len(req.Requests))
			for i := range req.Requests {
				embeddings[i] = geminiEmbedding{Values: []float64{0.1, 0.2}}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiBatchEmbedResponse{Embeddings: embeddings})
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key",
		WithGeminiBaseURL(srv.URL),
		WithGeminiMaxRetries(2),
		WithGeminiInitialDelay(time.Millisecond),
	)

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a", "b"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 2)
	require.Equal(t, int64(2), counter.Load(), "should have retried once then succeeded")
}

func TestGeminiProvider_RetriesOnRateLimit(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiGenerateResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: "ok"}}},
			}},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key",
		WithGeminiBaseURL(srv.URL),
		WithGeminiMaxRetries(2),
		WithGeminiInitialDelay(time.Millisecond),
	)

	resp, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content())
	require.Equal(t, int64(2), counter.Load())
}

func TestGeminiProvider_BadRequestNotRetried(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("test-key",
		WithGeminiBaseURL(srv.URL),
		WithGeminiMaxRetries(3),
		WithGeminiInitialDelay(time.Millisecond),
	)

	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid argument")
	require.Equal(t, int64(1), counter.Load(), "4xx errors should not be retried")
}
