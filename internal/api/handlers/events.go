package handlers

import (
	"net/http"

	"github.com/dom/tps-identity/internal/api/middleware"
	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/service"
	"github.com/dom/tps-identity/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // token in the query string is the only gate
	},
}

// EventsHandler streams audit events to admins over a websocket. Browsers
// cannot set headers on the upgrade request, so the bearer token travels in
// the token query parameter.
type EventsHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	log         *zap.Logger
}

func NewEventsHandler(hub *websocket.Hub, authService *service.AuthService, log *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:         hub,
		authService: authService,
		log:         log,
	}
}

func (h *EventsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		writeDomainError(w, h.log, domain.ErrUnauthorized)
		return
	}

	claims, err := h.authService.VerifyToken(raw)
	if err != nil {
		middleware.WriteUnauthorized(w, "Invalid or expired token")
		return
	}
	if !h.authService.CanWatchEvents(claims) {
		writeDomainError(w, h.log, domain.ErrForbidden)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		writeDomainError(w, h.log, domain.ErrUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
