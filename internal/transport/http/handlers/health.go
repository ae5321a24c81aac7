package handlers

import (
	"context"
	"net/http"

	"github.com/kestrelauth/authn-engine/internal/transport/http/response"
)

// Pinger is the minimal storage-health check the readiness probe needs.
// *sql.DB satisfies this.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger // nil when running against the in-memory storage adapter
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports process liveness only.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz additionally pings the storage backend, if one is wired.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "storage unavailable",
			})
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
