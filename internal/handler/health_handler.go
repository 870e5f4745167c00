package handler

import (
	"context"
	"net/http"

	"notedrop/pkg/apierror"
)

type pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports liveness. The database is the only hard
// dependency checked here; the bridge and cache degrade per request.
type HealthHandler struct {
	db pinger
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		writeError(w, apierror.New("SERVICE_UNAVAILABLE", "database unreachable", "", http.StatusServiceUnavailable))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"}, nil)
}
