package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/model"
)

// TokenService defines token refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	RevokeByToken(ctx context.Context, refreshToken string) error
}

// Token handles HTTP endpoints for the refresh token lifecycle.
type Token struct {
	tokenService TokenService
	logger       *logger.Logger
}

// NewToken creates a new Token handler.
func NewToken(tokenService TokenService, logger *logger.Logger) *Token {
	return &Token{
		tokenService: tokenService,
		logger:       logger,
	}
}

// Refresh rotates a refresh token and returns a new pair.
func (h *Token) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	access, refresh, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Info("Token handler: refresh failed",
			"error", err.Error())
		h.handleTokenError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Token refreshed successfully",
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Logout revokes the presented refresh token.
func (h *Token) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := h.tokenService.RevokeByToken(r.Context(), req.RefreshToken); err != nil {
		h.logger.Info("Token handler: logout failed",
			"error", err.Error())
		h.handleTokenError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// handleTokenError maps refresh token failures. A token that cannot be
// parsed, is unknown to the store, or fails validation is a credential
// problem, not a server error.
func (h *Token) handleTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrTokenInvalid),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenMismatch),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	default:
		handleError(w, err)
	}
}
