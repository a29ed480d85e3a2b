package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/freema/docsgate/internal/logger"
	"github.com/freema/docsgate/internal/tracing"
)

// RequestLogger attaches a request-scoped logger to the context and logs
// each HTTP request with method, path, status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimw.GetReqID(r.Context())

		log := slog.Default().With("request_id", reqID)
		if traceID := tracing.TraceIDFromContext(r.Context()); traceID != "" {
			log = log.With("trace_id", traceID)
		}
		r = r.WithContext(logger.WithContext(r.Context(), log))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
		)
	})
}
