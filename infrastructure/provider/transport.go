package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/finsight-ai/finsight/internal/database"
)

// cacheEntry is a single cached HTTP exchange.
type cacheEntry struct {
	Key        string `gorm:"primaryKey"`
	StatusCode int    `gorm:"not null"`
	Header     []byte `gorm:"not null"`
	Body       []byte `gorm:"not null"`
	CreatedAt  time.Time
}

func (cacheEntry) TableName() string {
	return "http_cache"
}

// CachingTransport is an http.RoundTripper that caches request/response
// pairs in a SQLite database, keyed by the SHA-256 of method + URL +
// request body. Only 2xx responses are cached. Cache read/write errors
// are non-fatal and fall through to the inner transport.
type CachingTransport struct {
	inner http.RoundTripper
	db    database.Database
}

// NewCachingTransport creates a CachingTransport that stores its cache
// database under dir. If inner is nil, http.DefaultTransport is used.
func NewCachingTransport(dir string, inner http.RoundTripper) (*CachingTransport, error) {
	if inner == nil {
		inner = http.DefaultTransport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(context.Background(), "sqlite:///"+filepath.Join(dir, "httpcache.db"))
	if err != nil {
		return nil, err
	}
	if err := db.GORM().AutoMigrate(&cacheEntry{}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &CachingTransport{inner: inner, db: db}, nil
}

// Close closes the underlying cache database.
func (t *CachingTransport) Close() error {
	return t.db.Close()
}

// RoundTrip implements http.RoundTripper.
func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	key := cacheKey(req.Method, req.URL.String(), body)

	if resp, ok := t.readCache(req, key); ok {
		return resp, nil
	}

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()

	t.writeCache(req.Context(), key, resp.StatusCode, resp.Header, respBody)

	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	return resp, nil
}

// cacheKey derives a stable cache key from the request.
func cacheKey(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte("\n"))
	h.Write([]byte(url))
	h.Write([]byte("\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (t *CachingTransport) readCache(req *http.Request, key string) (*http.Response, bool) {
	var entry cacheEntry
	err := t.db.Session(req.Context()).Where("`key` = ?", key).First(&entry).Error
	if err != nil {
		return nil, false
	}

	var header http.Header
	if err := json.Unmarshal(entry.Header, &header); err != nil {
		return nil, false
	}

	resp := &http.Response{
		StatusCode: entry.StatusCode,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
		Request:    req,
	}
	return resp, true
}

func (t *CachingTransport) writeCache(ctx context.Context, key string, statusCode int, header http.Header, body []byte) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return
	}

	entry := cacheEntry{
		Key:        key,
		StatusCode: statusCode,
		Header:     headerJSON,
		Body:       body,
	}
	_ = t.db.Session(ctx).Create(&entry).Error
}
