package handler

import (
	"net/http"
	"strconv"

	"notedrop/internal/middleware"
	"notedrop/internal/service"
	"notedrop/pkg/apierror"
)

type StatsHandler struct {
	service *service.StatsService
}

func NewStatsHandler(service *service.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Get serves the dashboard stats. ?refresh=true bypasses the cache and
// forces a fresh aggregation pass.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	forceRefresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	stats, err := h.service.GetStats(r.Context(), claims.UserID, forceRefresh)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}

// Invalidate drops the caller's cached stats without recomputing them.
func (h *StatsHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	if err := h.service.Invalidate(r.Context(), claims.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"invalidated": true}, nil)
}
