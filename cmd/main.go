package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/duochat/duochat-server/internal/api/http/middleware"
	"github.com/duochat/duochat-server/internal/api/http/router"
	httpserver "github.com/duochat/duochat-server/internal/api/http/server"
	"github.com/duochat/duochat-server/internal/config"
	"github.com/duochat/duochat-server/internal/logger"
	"github.com/duochat/duochat-server/internal/model"
	"github.com/duochat/duochat-server/internal/repository/postgres"
	"github.com/duochat/duochat-server/internal/server"
	"github.com/duochat/duochat-server/internal/service"
	"github.com/duochat/duochat-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	// Optional .env for local development; the environment wins otherwise.
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	conversationRepo := postgres.NewConversationRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, logger)
	identityService := service.NewIdentity(userRepo, tokenService, logger)
	conversationService := service.NewConversation(conversationRepo, userRepo, logger)

	limiter := newRateLimiter(cfg, logger)

	r := router.New(identityService, conversationService, tokenService, limiter, db.Ping, logger)
	defer r.Close()

	srv := httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newRateLimiter prefers Redis when configured so limits hold across
// replicas, falling back to the in-memory limiter.
func newRateLimiter(cfg *config.Config, logger *logger.Logger) middleware.RateLimiter {
	if cfg.Redis.Addr == "" {
		return middleware.NewMemoryRateLimiter()
	}
	limiter, err := middleware.NewRedisRateLimiter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Error("failed to connect to redis, using in-memory rate limiter", "error", err)
		return middleware.NewMemoryRateLimiter()
	}
	return limiter
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
