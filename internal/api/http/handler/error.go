package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quietpages/quietpages-server/internal/model"
)

// errorResponse is the wire shape for every non-2xx JSON response. Code is
// a stable machine-readable string so clients can branch without parsing
// the human-readable message.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status, code, message := classifyError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, model.ErrEmailTaken):
		return http.StatusConflict, "USER_EXISTS",
			"This email is already registered. Please sign in instead."
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS",
			"Invalid email or password. Please check your credentials."
	case errors.Is(err, model.ErrInvalidEmail):
		return http.StatusBadRequest, "INVALID_EMAIL",
			"Please enter a valid email address."
	case errors.Is(err, model.ErrWeakPassword):
		return http.StatusBadRequest, "WEAK_PASSWORD",
			"Password should be at least 6 characters."
	case errors.Is(err, model.ErrContentRequired):
		return http.StatusBadRequest, "CONTENT_REQUIRED",
			"Entry content is required."
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND",
			"The requested resource was not found."
	case errors.Is(err, model.ErrNotProvisioned):
		return http.StatusServiceUnavailable, "NOT_SETUP",
			"The backend is not set up yet. Please run the provisioning steps."
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden, "PERMISSION_DENIED",
			"You do not have permission to perform this action."
	case errors.Is(err, model.ErrProviderAuth):
		return http.StatusUnauthorized, "OAUTH_FAILED",
			"Sign-in with the provider failed. Please try again."
	case errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenMismatch):
		return http.StatusUnauthorized, "SESSION_EXPIRED",
			"Your session has expired. Please sign in again."
	default:
		return http.StatusInternalServerError, "UNKNOWN",
			"An unexpected error occurred. Please try again."
	}
}
