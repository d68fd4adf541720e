package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finsight-ai/finsight/application/service"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(404, "resource not found", nil)

	if err.Code() != 404 {
		t.Errorf("Code() = %v, want 404", err.Code())
	}
	if err.Message() != "resource not found" {
		t.Errorf("Message() = %v", err.Message())
	}
	if got, want := err.Error(), "api error 404: resource not found"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
}

func TestAPIError_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewAPIError(500, "internal error", cause)

	if got, want := err.Error(), "api error 500: internal error: underlying error"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("invalid token")

	if got, want := err.Error(), "authentication failed: invalid token"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
	if !errors.Is(err, ErrAuthentication) {
		t.Error("AuthenticationError should match ErrAuthentication")
	}
}

func TestServerError(t *testing.T) {
	err := NewServerError(503, "service unavailable")

	if err.StatusCode() != 503 {
		t.Errorf("StatusCode() = %v, want 503", err.StatusCode())
	}
	if err.Message() != "service unavailable" {
		t.Errorf("Message() = %v", err.Message())
	}
	if got, want := err.Error(), "server error 503: service unavailable"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
	if !errors.Is(err, ErrServer) {
		t.Error("ServerError should match ErrServer")
	}
}

func TestErrors_SurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", NewAuthenticationError("token expired"))

	if !errors.Is(wrapped, ErrAuthentication) {
		t.Error("wrapped AuthenticationError should still match ErrAuthentication")
	}
	var target *AuthenticationError
	if !errors.As(wrapped, &target) {
		t.Error("errors.As should extract AuthenticationError")
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"api error keeps its code", NewAPIError(http.StatusBadRequest, "bad body", nil), http.StatusBadRequest},
		{"authentication", NewAuthenticationError("missing key"), http.StatusUnauthorized},
		{"unknown company", service.ErrCompanyNotFound, http.StatusNotFound},
		{"closed client", service.ErrClientClosed, http.StatusServiceUnavailable},
		{"embedding provider down", service.EmbeddingError("embed", errors.New("429")), http.StatusBadGateway},
		{"generation provider down", service.GenerationError("generate", errors.New("503")), http.StatusBadGateway},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
			w := httptest.NewRecorder()
			WriteError(w, req, tc.err, nil)

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s", ct)
			}
		})
	}
}
