package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Ashutosh0212/postgenius/internal/audit"
	"github.com/Ashutosh0212/postgenius/internal/auth"
	"github.com/Ashutosh0212/postgenius/internal/config"
	"github.com/Ashutosh0212/postgenius/internal/database"
	"github.com/Ashutosh0212/postgenius/internal/email"
	httpServer "github.com/Ashutosh0212/postgenius/internal/http"
	"github.com/Ashutosh0212/postgenius/internal/logging"
	"github.com/Ashutosh0212/postgenius/internal/ratelimit"
	"github.com/Ashutosh0212/postgenius/internal/user"
)

// @title           PostGenius API
// @version         1.0
// @description     Authentication and account management API for the PostGenius social media platform.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	tokenRepo := auth.NewTokenRepository(db, cfg.Auth.VerificationTokenDuration, cfg.Auth.ResetTokenDuration)

	var refreshRepo auth.RefreshTokenRepository
	if cfg.Auth.RefreshTokenStore == "redis" {
		refreshRepo = auth.NewRedisRepository(redisClient)
	} else {
		refreshRepo = auth.NewRepository(db)
	}
	attemptRepo := audit.NewRepository(db)
	attemptRecorder := audit.NewRecorder(attemptRepo, logger)

	// Expired refresh tokens are dead weight; sweep them hourly.
	// The Redis store expires its keys itself, so its sweep is a no-op.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepExpiredTokens(sweepCtx, refreshRepo, logger)

	rateLimiter := ratelimit.NewLimiter(redisClient)

	pasetoService, err := auth.NewPasetoService(cfg.Auth.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize PASETO service: %w", err)
	}

	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	authService := auth.NewService(
		userRepo,
		refreshRepo,
		tokenRepo,
		pasetoService,
		emailService,
		attemptRecorder,
		logger,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)

	// HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	userHandler := user.NewHandler(userRepo, auth.GetUserIDFromContext)
	authMiddleware := auth.NewMiddleware(pasetoService)

	router := httpServer.NewRouter(cfg, authHandler, userHandler, authMiddleware, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// sweepExpiredTokens periodically deletes expired refresh tokens until ctx is done
func sweepExpiredTokens(ctx context.Context, repo auth.RefreshTokenRepository, logger *logging.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.CleanupExpiredTokens(ctx); err != nil {
				logger.Error("expired token cleanup failed", "error", err)
			}
		}
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
