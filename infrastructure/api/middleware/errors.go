// Package middleware provides HTTP middleware and response helpers for
// the API server.
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/finsight-ai/finsight/application/service"
)

// ErrAuthentication is the sentinel for authentication failures.
var ErrAuthentication = errors.New("authentication failed")

// ErrServer is the sentinel for upstream server failures.
var ErrServer = errors.New("server error")

// APIError is an error with an HTTP status code and client-facing
// message.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError indicates a failed authentication attempt.
type AuthenticationError struct {
	reason string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{reason: reason}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.reason)
}

// Is makes the error matchable against ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// ServerError indicates an upstream failure with a status code.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.statusCode }

// Message returns the error message.
func (e *ServerError) Message() string { return e.message }

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.statusCode, e.message)
}

// Is makes the error matchable against ErrServer.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps an error to an HTTP status and writes a JSON error
// body. Service error kinds map to statuses: configuration and
// retrieval failures are internal, upstream provider and registry
// failures are bad gateway.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code()
		message = apiErr.Message()
	case errors.Is(err, ErrAuthentication):
		status = http.StatusUnauthorized
		message = "unauthorized"
	case errors.Is(err, service.ErrCompanyNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, service.ErrClientClosed):
		status = http.StatusServiceUnavailable
		message = "service unavailable"
	case service.IsKind(err, service.KindFetch),
		service.IsKind(err, service.KindEmbedding),
		service.IsKind(err, service.KindGeneration):
		status = http.StatusBadGateway
		message = "upstream provider error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"status", status, "error", err)
	} else {
		logger.Info("request rejected",
			"method", r.Method, "path", r.URL.Path,
			"status", status, "error", err)
	}

	WriteJSON(w, status, map[string]string{"error": message})
}
