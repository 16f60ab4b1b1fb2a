// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AreasHandler handles area seeding requests.
type AreasHandler struct {
	deps Dependencies
}

// NewAreasHandler creates a new areas handler.
func NewAreasHandler(deps Dependencies) *AreasHandler {
	return &AreasHandler{deps: deps}
}

// HandlePostArea handles POST /areas requests. It registers an area's
// capacity so frames that omit one can still be classified.
func (h *AreasHandler) HandlePostArea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.SeedArea(r.Context(), req.AreaID, req.Capacity); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", ErrStore)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}
