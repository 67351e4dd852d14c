package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dom/tps-identity/internal/api/middleware"
	"github.com/dom/tps-identity/internal/domain"
	"go.uber.org/zap"
)

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{
		Code:     "BAD_REQUEST",
		Message:  message,
		Category: "validation",
		Action:   "Check the request body and try again.",
	})
}

// writeDomainError maps an identity failure to its status code. Anything
// unrecognised is a 500 whose detail stays in the log.
func writeDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	var policy *domain.PolicyError
	switch {
	case errors.As(err, &policy):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{
			Code:     "POLICY_VIOLATION",
			Message:  policy.Reason,
			Category: "validation",
			Action:   "Correct the highlighted value and try again.",
		})
	case errors.Is(err, domain.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrorBody{
			Code:     "CONFLICT",
			Message:  messageOf(err, domain.ErrConflict),
			Category: "validation",
			Action:   "Use a different email address.",
		})
	case errors.Is(err, domain.ErrInvalidResetToken):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorBody{
			Code:     "INVALID_RESET_TOKEN",
			Message:  "Invalid or expired reset token",
			Category: "auth",
			Action:   "Request a new password reset.",
		})
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrorBody{
			Code:     "NOT_FOUND",
			Message:  "User not found",
			Category: "resource",
			Action:   "Check the user id.",
		})
	case errors.Is(err, domain.ErrCryptoFormat):
		log.Error("stored credential is corrupt", zap.Error(err))
		writeInternal(w)
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrorBody{
			Code:     "UNAUTHORIZED",
			Message:  messageOf(err, domain.ErrUnauthorized),
			Category: "auth",
			Action:   "Check your credentials and try again.",
		})
	case errors.Is(err, domain.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrorBody{
			Code:     "FORBIDDEN",
			Message:  "Access denied",
			Category: "auth",
			Action:   "Ask an administrator for access.",
		})
	default:
		log.Error("unhandled service error", zap.Error(err))
		writeInternal(w)
	}
}

func writeInternal(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorBody{
		Code:     "INTERNAL_ERROR",
		Message:  "Internal server error",
		Category: "system",
		Action:   "Try again later.",
	})
}

// messageOf strips the sentinel prefix from a wrapped error and capitalises
// what remains, so "conflict: email already in use" reads "Email already in use".
func messageOf(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
