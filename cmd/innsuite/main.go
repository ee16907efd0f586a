package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/app"
	"github.com/innsuite/innsuite/internal/audit"
	audithttp "github.com/innsuite/innsuite/internal/audit/http"
	"github.com/innsuite/innsuite/internal/auth"
	"github.com/innsuite/innsuite/internal/observability"
	"github.com/innsuite/innsuite/internal/platform/cache"
	"github.com/innsuite/innsuite/internal/platform/db"
	"github.com/innsuite/innsuite/internal/roles"
	"github.com/innsuite/innsuite/internal/shared"
	"github.com/innsuite/innsuite/internal/users"
	"github.com/innsuite/innsuite/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	accessStore := access.NewPGStore(dbpool)
	subscriptions, err := access.NewSubscriptions(accessStore, logger, cfg.SubscriptionCacheSize)
	if err != nil {
		logger.Error("init subscriptions", slog.Any("error", err))
		os.Exit(1)
	}
	accessCache := access.NewCache(redisClient, cfg.AccessCacheTTL)
	accessManager, err := access.NewManager(access.ManagerConfig{
		Store:         accessStore,
		Subscriptions: subscriptions,
		Cache:         accessCache,
		Logger:        logger,
		Recorder:      metrics,
		Breaker: access.BreakerConfig{
			FailureThreshold: cfg.AccessBreakerThreshold,
			Timeout:          cfg.AccessBreakerTimeout,
			OnStateChange: func(from, to string) {
				logger.Warn("permission breaker state", slog.String("from", from), slog.String("to", to))
				metrics.BreakerStateChanged(from, to)
			},
		},
		FetchTimeout: cfg.AccessFetchTimeout,
	})
	if err != nil {
		logger.Error("init access manager", slog.Any("error", err))
		os.Exit(1)
	}
	if err := accessManager.Listen(ctx); err != nil {
		logger.Warn("access invalidation listener", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	invalidator := jobs.NewAccessInvalidator(jobClient, accessCache, accessManager.InvalidateTenant, logger)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, accessManager)

	rolesService := roles.NewService(roles.NewRepository(dbpool), auditLogger, invalidator, logger)
	rolesHandler := roles.NewHandler(logger, rolesService)

	usersService := users.NewService(users.ServiceConfig{
		Repo:        users.NewRepository(dbpool),
		Audit:       auditLogger,
		Idempotency: idempotencyStore,
		Invalidator: invalidator,
		Logger:      logger,
		BcryptCost:  cfg.BcryptCost,
	})
	usersHandler := users.NewHandler(logger, usersService)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)))

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Access:         accessManager,
		AccessStore:    accessStore,
		AuthHandler:    authHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		Checks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
