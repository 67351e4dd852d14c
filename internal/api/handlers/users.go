package handlers

import (
	"net/http"

	"github.com/dom/tps-identity/internal/api/middleware"
	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	authService *service.AuthService
	log         *zap.Logger
}

func NewUserHandler(authService *service.AuthService, log *zap.Logger) *UserHandler {
	return &UserHandler{authService: authService, log: log}
}

type UpdateProfileRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type SetRoleRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

type UsersListResponse struct {
	Users []domain.PublicUser `json:"users"`
	Total int                 `json:"total"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	users, err := h.authService.ListUsers(r.Context(), claims)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, UsersListResponse{Users: users, Total: len(users)})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	user, err := h.authService.GetUser(r.Context(), claims, id)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	user, err := h.authService.UpdateProfile(r.Context(), claims, id, service.ProfileInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user, Message: service.MsgProfileSaved})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeBadRequest(w, "Current and new password are required")
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	if err := h.authService.ChangePassword(r.Context(), claims, id, req.CurrentPassword, req.NewPassword); err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: service.MsgPasswordSet})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	if err := h.authService.DeleteUser(r.Context(), claims, id); err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: service.MsgUserDeleted})
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := decodeJSON(r, &req); err != nil || req.IsAdmin == nil {
		writeBadRequest(w, "is_admin is required")
		return
	}
	claims, _ := middleware.GetClaims(r.Context())

	user, err := h.authService.SetRole(r.Context(), claims, id, *req.IsAdmin)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user, Message: service.MsgRoleSaved})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "Invalid user id")
		return uuid.Nil, false
	}
	return id, true
}
