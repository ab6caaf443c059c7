package handler

import (
	"errors"
	"net/http"

	"github.com/duochat/duochat-server/internal/apierrors"
	"github.com/duochat/duochat-server/internal/model"
)

// handleError translates service errors to HTTP responses. Typed API
// errors carry their own status; storage and token errors map here so
// no handler invents its own status codes.
func handleError(w http.ResponseWriter, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.HTTPStatus, apiErr.Message)
		return
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenMismatch):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	default:
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}
