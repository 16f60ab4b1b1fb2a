// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeedArea registers or updates an area's capacity.
	SeedArea(ctx context.Context, areaID string, capacity int) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	areasHandler  *AreasHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		areasHandler:  NewAreasHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. The WebSocket endpoint is
// registered separately by the caller.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/areas", MetricsMiddleware(s.areasHandler.HandlePostArea, "areas"))
}

// areaRequest mirrors the JSON schema for POST /areas.
type areaRequest struct {
	AreaID   string `json:"area_id"`
	Capacity int    `json:"capacity"`
}

func (a areaRequest) validate() error {
	switch {
	case strings.TrimSpace(a.AreaID) == "":
		return errors.New("missing area_id")
	case a.Capacity <= 0:
		return errors.New("capacity must be positive")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
