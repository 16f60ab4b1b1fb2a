// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// StatsProvider exposes the service's live counters: open websocket
// connections, broker link state and stored result rows.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the operator-facing stats snapshot.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a handler backed by the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(h.provider.GetStats())
}
