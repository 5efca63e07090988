package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"password-analyzer/internal/config"
	"password-analyzer/internal/db"
	apihttp "password-analyzer/internal/http"
	"password-analyzer/internal/oauth"
	"password-analyzer/internal/repository"
	"password-analyzer/internal/service"
	"password-analyzer/internal/strength"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	defer logger.Sync()

	var (
		userRepo repository.UserRepository
		store    db.StatusReporter
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db pool", zap.Error(err))
		}
		defer pool.Close()

		manager := db.NewManager(logger, pool, db.ManagerOptions{
			RetryDelay:   cfg.StoreRetryDelay,
			PingInterval: cfg.StorePingInterval,
			Migrate: func(ctx context.Context) error {
				return db.Migrate(ctx, pool)
			},
		})
		manager.Start(ctx)
		defer manager.Close()

		userRepo = repository.NewPgUserRepository(pool)
		store = manager
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		userRepo = repository.NewMemoryUserRepository()
		store = db.StaticStatus(db.StateConnected)
	}

	loginLimiter := service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitLogin)
	analyzeLimiter := service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitAnalyze)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limits", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisRateLimiter(redisClient, logger, "login", cfg.RateLimitWindow, cfg.RateLimitLogin)
			analyzeLimiter = service.NewRedisRateLimiter(redisClient, logger, "analyze", cfg.RateLimitWindow, cfg.RateLimitAnalyze)
		}
		cancel()
	}

	var scorerOpts []strength.Option
	if cfg.StrengthCheckWelcome {
		scorerOpts = append(scorerOpts, strength.WithWelcomePattern())
	}

	var verifier oauth.Verifier
	if cfg.GoogleVerifyToken {
		verifier = oauth.NewGoogleVerifier(cfg.GoogleUserInfoURL, logger)
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	authSvc := service.NewAuthService(logger, userRepo, jwtSvc, verifier)
	analysisSvc := service.NewAnalysisService(logger, strength.NewScorer(scorerOpts...), userRepo, service.AnalysisOptions{
		HistoryLimit: cfg.PasswordHistoryLimit,
		BcryptCost:   cfg.BcryptCost,
	})

	metrics := apihttp.NewMetrics()
	router := apihttp.NewRouter(logger,
		apihttp.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			Authenticator:  authSvc,
			LoginLimiter:   loginLimiter,
			AnalyzeLimiter: analyzeLimiter,
			Metrics:        metrics,
			DebugErrors:    cfg.IsDevelopment(),
		},
		apihttp.NewAuthHandler(logger, authSvc, metrics),
		apihttp.NewAnalysisHandler(logger, analysisSvc, metrics),
		apihttp.NewHealthHandler(store),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
