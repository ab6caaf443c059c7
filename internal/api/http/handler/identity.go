package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/model"
	"github.com/duochat/duochat-server/internal/service"
)

// IdentityService defines user account operations.
type IdentityService interface {
	Create(ctx context.Context, params service.CreateUserParams) (model.User, error)
	Authenticate(ctx context.Context, email, password string) (model.User, service.TokenPair, error)
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id uuid.UUID) (model.User, error)
}

// Identity handles HTTP endpoints for user accounts.
type Identity struct {
	identityService IdentityService
	logger          *logger.Logger
}

// NewIdentity creates a new Identity handler.
func NewIdentity(identityService IdentityService, logger *logger.Logger) *Identity {
	return &Identity{
		identityService: identityService,
		logger:          logger,
	}
}

// CreateUser registers a new account.
func (h *Identity) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.identityService.Create(r.Context(), service.CreateUserParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		h.logger.Error("Identity handler: create user failed",
			"email", req.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"data":    toUserJSON(user),
	})
}

// Login verifies credentials and returns the user with a token pair.
func (h *Identity) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, tokens, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Identity handler: login failed",
			"email", req.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"user":         toUserJSON(user),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	})
}

// ListUsers returns every registered user.
func (h *Identity) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.List(r.Context())
	if err != nil {
		h.logger.Error("Identity handler: list users failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user found",
		"user":    toUsersJSON(users),
	})
}
