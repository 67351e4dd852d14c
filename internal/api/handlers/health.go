package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const dbPingTimeout = 2 * time.Second

// DBPinger checks database connectivity. Nil means no database is configured.
type DBPinger func(ctx context.Context) error

type HealthHandler struct {
	ping DBPinger
	log  *zap.Logger
}

func NewHealthHandler(ping DBPinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, log: log}
}

type DBHealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	if h.ping == nil {
		writeJSON(w, http.StatusOK, DBHealthResponse{Status: "ok", Database: "not_configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		h.log.Error("database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, DBHealthResponse{Status: "error", Database: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, DBHealthResponse{Status: "ok", Database: "connected"})
}
