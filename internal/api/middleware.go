package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/videocatalog/catalogcore/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestLogging stamps every request with a correlation ID (reusing
// chi's own request-ID middleware for the header, mirroring the teacher's
// RequestIDWithLogging), attaches it to the request context so handlers'
// logging.Ctx(ctx) calls carry it, and logs one line per request at
// completion — same shape as the teacher's E2EDebugLogging but always on,
// since this core has no separate debug-only logging tier.
func requestLogging(next http.Handler) http.Handler {
	withID := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = logging.GenerateCorrelationID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logging.WithCorrelationID(r.Context(), id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("api: request")
	}))
	return withID
}

// rateLimitMiddleware caps requests per client IP using go-chi/httprate,
// mirroring the teacher's ChiMiddleware.RateLimitByIP — this surface has no
// auth/session concept to key a limiter on, so IP is the only seam available.
// requests<=0 disables the limiter entirely (matches the teacher's
// RateLimitDisabled no-op passthrough).
func rateLimitMiddleware(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(requests, window)
}

// corsMiddleware allows browser-based clients to call the read API from any
// origin — a read-only, unauthenticated surface has no cookies/credentials
// to protect against CSRF, so a permissive default-allow policy is enough
// (mirrors the teacher's global CORS placement ahead of every route, minus
// the credentialed-origin allowlist its authenticated surface needs).
func corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})
}
