// Package api serves similarity lookups and recommendations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sydlexius/recfinder/internal/api/middleware"
	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/recommend"
)

// Service is the recommendation pipeline the handlers drive.
// *recommend.Service satisfies it.
type Service interface {
	Similar(ctx context.Context, seed string) ([]string, error)
	Recommend(ctx context.Context, seed string, mode filter.Mode) (*recommend.Result, error)
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Service           Service
	Metrics           http.Handler
	Logger            *slog.Logger
	BasePath          string
	RequestsPerMinute int
	TrustProxy        bool
}

// Router sets up all HTTP routes for the application.
type Router struct {
	service           Service
	metrics           http.Handler
	logger            *slog.Logger
	basePath          string
	requestsPerMinute int
	trustProxy        bool
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		service:           deps.Service,
		metrics:           deps.Metrics,
		logger:            deps.Logger.With(slog.String("component", "api")),
		basePath:          deps.BasePath,
		requestsPerMinute: deps.RequestsPerMinute,
		trustProxy:        deps.TrustProxy,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
// ctx bounds the rate limiter's background sweep.
func (r *Router) Handler(ctx context.Context) http.Handler {
	limiter := middleware.NewRateLimiter(ctx, r.requestsPerMinute, r.trustProxy)
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.Handle("GET "+bp+"/api/v1/similar", limiter.Middleware(http.HandlerFunc(r.handleSimilar)))
	mux.Handle("GET "+bp+"/api/v1/recommendations", limiter.Middleware(http.HandlerFunc(r.handleRecommendations)))
	if r.metrics != nil {
		mux.Handle("GET "+bp+"/metrics", r.metrics)
	}

	var h http.Handler = mux
	h = middleware.SecurityHeaders(h)
	h = middleware.Logging(r.logger)(h)
	return middleware.RequestID(h)
}
