package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidBroadcastType = "INVALID_BROADCAST_TYPE"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeClientNotFound       = "CLIENT_NOT_FOUND"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Session state
	case errors.Is(err, model.ErrUnknownUser):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User is not online"}}
	case errors.Is(err, model.ErrUnknownClient):
		return &httpError{http.StatusNotFound, APIError{CodeClientNotFound, "Client is not connected"}}
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAccountNotFound, "Account not found"}}
	case errors.Is(err, router.ErrUnknownBroadcastType):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidBroadcastType, "Broadcast type must be users, clients or socks"}}

	// Accounts
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrPasswordTooShort):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
