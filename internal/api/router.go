package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/videocatalog/catalogcore/internal/api/docs"
)

// NewRouter composes the read-only route tree, mirroring the teacher's
// SetupChi global-middleware-then-routed-groups layout, minus the
// auth/admin groups this spec never implements. Rate limiting is kept
// (unlike auth) since the teacher applies it ahead of every route
// regardless of auth mode, and an anonymous read surface is exactly the
// kind of endpoint a scraper would otherwise hammer unbounded.
func NewRouter(h *Handler, rateLimitRequests int, rateLimitWindow time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware())
	r.Use(rateLimitMiddleware(rateLimitRequests, rateLimitWindow))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/videos", h.ListVideos)
		r.Get("/videos/{id}", h.GetVideo)
		r.Get("/search", h.Search)
		r.Get("/search/advanced", h.AdvancedSearch)
		r.Get("/search/suggestions", h.Suggestions)
		r.Get("/recommend", h.Recommend)
		r.Get("/trending", h.Trending)
	})

	return r
}
