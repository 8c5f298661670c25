// Package http assembles the service's HTTP surface: shared middleware,
// registry handlers, the metrics endpoint, and health checks.
package http

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustledger/internal/platform/metrics"
	"trustledger/internal/platform/middleware"
)

// Registrar is anything that can attach routes to the router. All registry
// handlers and the health handler implement it.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the root chi router with the shared middleware chain and
// mounts every registrar on it.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, registrars ...Registrar) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.LatencyMiddleware(m))

	r.Handle("/metrics", promhttp.Handler())

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}
