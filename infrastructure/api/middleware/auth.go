package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the header carrying the API key.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds the accepted API keys. Empty keys disable
// authentication entirely.
type AuthConfig struct {
	keys []string
}

// NewAuthConfigWithKeys creates an AuthConfig accepting the given keys.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	k := make([]string, len(keys))
	copy(k, keys)
	return AuthConfig{keys: k}
}

// Enabled reports whether authentication is configured.
func (c AuthConfig) Enabled() bool {
	return len(c.keys) > 0
}

// Valid reports whether the presented key matches a configured key.
func (c AuthConfig) Valid(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect returns middleware that requires a valid API key on
// mutating methods (POST, PUT, PATCH, DELETE). Reads pass through. With
// no keys configured, everything passes.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if !config.Valid(r.Header.Get(APIKeyHeader)) {
				WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteProtectAuth is WriteProtect with the key list inlined.
func WriteProtectAuth(keys []string) func(http.Handler) http.Handler {
	return WriteProtect(NewAuthConfigWithKeys(keys))
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
