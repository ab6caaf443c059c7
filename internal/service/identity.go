package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/duochat/duochat-server/internal/apierrors"
	"github.com/duochat/duochat-server/internal/crypto"
	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/model"
)

var validate = validator.New()

// Identity manages user accounts and credential verification.
type Identity struct {
	userStore    model.UserStore
	tokenService *TokenService
	logger       *logger.Logger
}

func NewIdentity(userStore model.UserStore, tokenService *TokenService, logger *logger.Logger) *Identity {
	return &Identity{
		userStore:    userStore,
		tokenService: tokenService,
		logger:       logger,
	}
}

// CreateUserParams contains parameters to create a user account.
type CreateUserParams struct {
	Name     string     `validate:"required"`
	Email    string     `validate:"required,email"`
	Password string     `validate:"required,max=72"`
	Role     model.Role `validate:"required"`
}

// TokenPair contains the access and refresh tokens issued at login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Create validates params, derives a bcrypt digest of the password, and
// persists a new user. Email uniqueness is detected via the storage
// constraint at insert time.
func (s *Identity) Create(ctx context.Context, params CreateUserParams) (model.User, error) {
	s.logger.Debug("Identity service: creating user",
		"email", params.Email)

	if err := validate.Struct(params); err != nil {
		return model.User{}, apierrors.NewValidationf("invalid user: %s", err)
	}
	if !params.Role.Valid() {
		return model.User{}, apierrors.NewValidationf("unknown role %q", params.Role)
	}

	digest, err := crypto.HashPassword(params.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: digest,
		Role:         params.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, err := s.userStore.Create(ctx, user)
	if errors.Is(err, model.ErrDuplicateEmail) {
		s.logger.Info("Identity service: email already taken",
			"email", params.Email)
		return model.User{}, apierrors.NewErrEmailTaken(params.Email)
	}
	if err != nil {
		s.logger.Error("Identity service: failed to create user",
			"email", params.Email,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Identity service: user created",
		"user_id", saved.ID,
		"email", saved.Email,
		"role", saved.Role)

	return saved, nil
}

// Authenticate verifies credentials and issues a token pair. A missing
// user and a failed digest comparison are reported as distinct error
// kinds; the handler layer decides how much of that to expose.
func (s *Identity) Authenticate(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	s.logger.Debug("Identity service: authenticating user",
		"email", email)

	if email == "" || password == "" {
		return model.User{}, TokenPair{}, apierrors.NewValidation("email and password are required")
	}

	user, err := s.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, TokenPair{}, apierrors.NewErrUserNotFound(email)
	}
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Info("Identity service: invalid credentials",
				"email", email)
			return model.User{}, TokenPair{}, apierrors.NewErrInvalidCredentials()
		}
		return model.User{}, TokenPair{}, fmt.Errorf("failed to compare password: %w", err)
	}

	access, refresh, err := s.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.Info("Identity service: user authenticated",
		"user_id", user.ID)

	return user, TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// List returns every known user. No filtering or pagination; the account
// set is expected to stay small.
func (s *Identity) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get resolves one user by id.
func (s *Identity) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierrors.NewErrUserNotFound(id.String())
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}
