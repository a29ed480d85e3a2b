package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /health and /ready endpoints.
type HealthHandler struct {
	checks    map[string]Pinger
	startTime time.Time
	version   string
	ready     *atomic.Bool
}

// NewHealthHandler creates a health handler. checks maps a component name
// ("cache", "redis") to its probe; nil probes are skipped.
func NewHealthHandler(checks map[string]Pinger, version string) *HealthHandler {
	ready := &atomic.Bool{}
	ready.Store(true)

	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &HealthHandler{
		checks:    live,
		startTime: time.Now(),
		version:   version,
		ready:     ready,
	}
}

// SetReady sets the readiness state (false during shutdown).
func (h *HealthHandler) SetReady(v bool) {
	h.ready.Store(v)
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
}

// Health probes every dependency and returns system health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
	statusCode := http.StatusOK

	if len(h.checks) > 0 {
		resp.Components = make(map[string]string, len(h.checks))
	}
	for name, p := range h.checks {
		if err := p.Ping(r.Context()); err != nil {
			resp.Components[name] = "disconnected"
			resp.Status = "error"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "connected"
	}

	writeJSON(w, statusCode, resp)
}

// Ready returns 200 if the server is accepting traffic, 503 during shutdown.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
