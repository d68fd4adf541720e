package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slowRequestThreshold marks requests worth calling out in the log.
// Chat requests do synchronous provider round trips and can legitimately
// take seconds.
const slowRequestThreshold = 10 * time.Second

// Logging returns a middleware that logs one line per completed request.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				attrs := []any{
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", elapsed.Milliseconds(),
					"remote_addr", r.RemoteAddr,
				}
				if elapsed > slowRequestThreshold {
					logger.Warn("slow request", attrs...)
					return
				}
				logger.Info("request completed", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
