// Package router assembles the HTTP mux from handlers and middleware.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/duochat/duochat-server/internal/api/http/handler"
	"github.com/duochat/duochat-server/internal/api/http/middleware"
	"github.com/duochat/duochat-server/internal/logger"
)

const (
	rateWindow      = time.Minute
	rateLimitSignup = 5
	rateLimitLogin  = 12

	healthCheckTimeout = 2 * time.Second
)

// Router wires HTTP endpoints to services and middleware.
type Router struct {
	identityService     handler.IdentityService
	conversationService handler.ConversationService
	tokenService        handler.TokenService
	limiter             middleware.RateLimiter
	dbHealth            func(context.Context) error
	logger              *logger.Logger
}

// New creates a new HTTP Router instance.
func New(
	identityService handler.IdentityService,
	conversationService handler.ConversationService,
	tokenService handler.TokenService,
	limiter middleware.RateLimiter,
	dbHealth func(context.Context) error,
	logger *logger.Logger,
) *Router {
	if limiter == nil {
		limiter = middleware.NewMemoryRateLimiter()
	}
	return &Router{
		identityService:     identityService,
		conversationService: conversationService,
		tokenService:        tokenService,
		limiter:             limiter,
		dbHealth:            dbHealth,
		logger:              logger,
	}
}

// Register builds the mux with all routes and middleware attached.
func (r *Router) Register() http.Handler {
	identityHandler := handler.NewIdentity(r.identityService, r.logger)
	conversationHandler := handler.NewConversation(r.conversationService, r.logger)
	tokenHandler := handler.NewToken(r.tokenService, r.logger)

	signupLimit := middleware.NewRateLimit(r.limiter, rateLimitSignup, rateWindow, nil)
	loginLimit := middleware.NewRateLimit(r.limiter, rateLimitLogin, rateWindow, nil)

	mux := http.NewServeMux()
	mux.Handle("POST /create-user", signupLimit.Handle(http.HandlerFunc(identityHandler.CreateUser)))
	mux.Handle("POST /login", loginLimit.Handle(http.HandlerFunc(identityHandler.Login)))
	mux.HandleFunc("GET /user", identityHandler.ListUsers)

	mux.HandleFunc("POST /create-chat", conversationHandler.CreateChat)
	mux.HandleFunc("GET /get-chat/{userId}", conversationHandler.GetChatsForUser)
	mux.HandleFunc("POST /send-message", conversationHandler.SendMessage)
	mux.HandleFunc("GET /chat/{chatId}", conversationHandler.GetChat)

	mux.Handle("POST /auth/refresh", loginLimit.Handle(http.HandlerFunc(tokenHandler.Refresh)))
	mux.HandleFunc("POST /auth/logout", tokenHandler.Logout)

	mux.HandleFunc("GET /healthz", r.handleHealthz)

	logging := middleware.NewLogging(r.logger)
	return logging.Handle(mux)
}

// Close releases background resources held by middleware.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			r.logger.Error("health check failed", "error", err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
