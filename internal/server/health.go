package server

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/desertthunder/djq/internal/models"
)

const maxGoroutines = 1000

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	healthcheck.Handler
}

// NewHealthHandler checks goroutine count for liveness and store reachability for readiness.
//
// Stores implementing [models.Pinger] are pinged; others are probed with a list call.
func NewHealthHandler(store models.RequestStore, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	h.AddReadinessCheck("store", healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if p, ok := store.(models.Pinger); ok {
			return p.Ping(ctx)
		}
		_, err := store.List(ctx)
		return err
	}, timeout))

	return &HealthHandler{Handler: h}
}

// Routes returns the probe endpoints.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /live", "GET /ready"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Handler.ServeHTTP(w, r)
}
