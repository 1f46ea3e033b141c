package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports how the daemon is wired for the dashboard.
type StatusHandler struct {
	Storage   string
	Currency  string
	Redis     bool
	Archive   bool
	StartedAt time.Time
}

// GetStatus responds with the storage driver, optional backends and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"storage":        h.Storage,
		"currency":       h.Currency,
		"redis":          h.Redis,
		"archive":        h.Archive,
		"started_at":     h.StartedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
