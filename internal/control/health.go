package control

import (
	"net/http"
	"runtime"
	"time"

	"frame-cache/internal/cache"
	"frame-cache/internal/startup"
)

const (
	statusHealthy = "healthy"
	statusPaused  = "paused"
	statusStopped = "stopped"
)

var processStart = time.Now()

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	State     string `json:"state"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	LastCycle string `json:"lastCycle,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Health returns the health status of the service
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	state := h.cache.State()

	response := HealthResponse{
		State:        state.String(),
		Version:      startup.Version,
		Uptime:       time.Since(processStart).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch state {
	case cache.StatePaused:
		response.Status = statusPaused
	case cache.StateStopped:
		response.Status = statusStopped
	default:
		response.Status = statusHealthy
	}

	if last := h.cache.LastCycle(); !last.IsZero() {
		response.LastCycle = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
