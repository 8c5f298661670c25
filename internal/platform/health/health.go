// Package health exposes a liveness/readiness endpoint aggregating the
// status of the service's backing stores.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustledger/pkg/platform/httputil"
)

// Checker reports the health of one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a named function to the Checker interface.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Handler serves the health endpoint. Checkers for unconfigured dependencies
// are simply not registered.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

func New(checkers ...Checker) *Handler {
	return &Handler{
		checkers: checkers,
		timeout:  5 * time.Second,
	}
}

// Register registers the health route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]checkResult, len(h.checkers))
	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[checker.Name()] = checkResult{Status: "unhealthy", Error: err.Error()}
			continue
		}
		checks[checker.Name()] = checkResult{Status: "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	httputil.WriteJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}
