package handlers

import (
	"net/http"
	"strconv"

	"github.com/dom/tps-identity/internal/api/middleware"
	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/service"
	"go.uber.org/zap"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type AdminHandler struct {
	authService *service.AuthService
	log         *zap.Logger
}

func NewAdminHandler(authService *service.AuthService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{authService: authService, log: log}
}

type EventsResponse struct {
	Events []domain.AuditEvent `json:"events"`
	Total  int                 `json:"total"`
}

func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeBadRequest(w, "Email, name and password are required")
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	user, err := h.authService.CreateAdmin(r.Context(), claims, service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{User: user, Message: service.MsgAdminCreated})
}

// RecentEvents lists persisted audit events, newest first. Without a
// database the list is empty.
func (h *AdminHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}
	claims, _ := middleware.GetClaims(r.Context())

	events, err := h.authService.RecentEvents(r.Context(), claims, limit)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Total: len(events)})
}
