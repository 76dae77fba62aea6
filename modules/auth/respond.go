package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/validator"
	"github.com/stackblog/authkit/svc/auth"
)

// errorResponse is the uniform error body. Details carries per-field messages
// for validation failures and is omitted otherwise.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close() //nolint:errcheck // nothing useful to do with the close error

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (m *Module) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		m.log.Error("failed to encode response", logger.Error(err), logger.Component("auth-http"))
	}
}

func (m *Module) respondErrorCode(w http.ResponseWriter, status int, code, message string) {
	m.respondJSON(w, status, errorResponse{Error: code, Message: message})
}

func (m *Module) respondBadRequest(w http.ResponseWriter) {
	m.respondErrorCode(w, http.StatusBadRequest, "bad_request", "Malformed request body.")
}

func (m *Module) respondOK(w http.ResponseWriter) {
	m.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondError maps service sentinels to the status-code contract. Anything
// unmapped is logged with full context and returned as an opaque 500.
func (m *Module) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, ve := range verrs {
			if _, ok := details[ve.Field]; !ok {
				details[ve.Field] = ve.Message
			}
		}
		m.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: "One or more fields failed validation.",
			Details: details,
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		m.respondErrorCode(w, http.StatusConflict, "email_taken", "An account with this email already exists.")
	case errors.Is(err, auth.ErrUsernameTaken):
		m.respondErrorCode(w, http.StatusConflict, "username_taken", "This username is already taken.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		m.respondErrorCode(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
	case errors.Is(err, auth.ErrTokenExpired):
		m.respondErrorCode(w, http.StatusUnauthorized, "token_expired", "Token has expired.")
	case errors.Is(err, auth.ErrTokenInvalid):
		m.respondErrorCode(w, http.StatusUnauthorized, "invalid_token", "Token is invalid.")
	case errors.Is(err, auth.ErrWrongPassword):
		m.respondErrorCode(w, http.StatusBadRequest, "wrong_password", "Current password is incorrect.")
	case errors.Is(err, auth.ErrSamePassword):
		m.respondErrorCode(w, http.StatusBadRequest, "same_password", "New password must differ from the current one.")
	case errors.Is(err, auth.ErrTokenNotUsable):
		m.respondErrorCode(w, http.StatusBadRequest, "invalid_or_expired_token", "Token is invalid or has expired.")
	case errors.Is(err, auth.ErrAlreadyVerified):
		m.respondErrorCode(w, http.StatusBadRequest, "already_verified", "Email is already verified.")
	case errors.Is(err, auth.ErrUserNotFound):
		// Reachable when the account is deleted between middleware resolution
		// and the handler's own re-read.
		m.respondErrorCode(w, http.StatusNotFound, "not_found", "Account not found.")
	default:
		m.log.ErrorContext(r.Context(), "unhandled service error",
			logger.Error(err),
			logger.Component("auth-http"),
		)
		m.respondErrorCode(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}
