package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/backbone-auth/internal/api/http"
	"github.com/spec-kit/backbone-auth/internal/api/http/handlers"
	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/events"
	"github.com/spec-kit/backbone-auth/internal/observability"
	"github.com/spec-kit/backbone-auth/internal/persistence"
	"github.com/spec-kit/backbone-auth/internal/repository"
	"github.com/spec-kit/backbone-auth/internal/service"
	"github.com/spec-kit/backbone-auth/internal/worker"
)

const auditDrainTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("postgres is required for the user store")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	hasher, err := auth.NewHMACHasher(cfg.Auth.PasswordDigest)
	if err != nil {
		logger.Fatal("invalid password digest", zap.Error(err))
	}
	codec, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		logger.Fatal("invalid token configuration", zap.Error(err))
	}
	verifier, err := service.NewCredentialVerifier(userRepo, hasher, logger, cfg.Auth.StoreTimeout())
	if err != nil {
		logger.Fatal("failed to init credential verifier", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	dispatcher := events.NewAsyncDispatcher(cfg.Audit.QueueSize, logger)
	var stream service.StreamAppender
	if redis.Client != nil {
		stream = redis
	}
	auditService := service.NewAuditService(dispatcher, activityRepo, stream, logger, cfg.Audit)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	auditDone := worker.StartAuditWorker(workerCtx, auditService, dispatcher)

	sessionCfg := service.SessionConfigFrom(cfg.Auth)
	deps := service.SessionDependencies{
		Credentials: verifier,
		Users:       userRepo,
		Tokens:      codec,
		Events:      dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	}
	roleSessions := service.NewRoleSessionService(sessionCfg, deps)
	impersonation := service.NewImpersonationService(sessionCfg, deps)
	logger.Info("impersonation policy",
		zap.Strings("impersonators", sessionCfg.ImpersonatorRoles),
		zap.Strings("impersonatable", impersonation.AllowList()),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	readiness := []handlers.Dependency{{Name: "postgres", Pinger: pg}}
	if redis.Client != nil {
		readiness = append(readiness, handlers.Dependency{Name: "redis", Pinger: redis})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness...),
		Auth:           handlers.NewAuthHandler(roleSessions, impersonation),
		AuthMiddleware: auth.NewAuthMiddleware(codec, logger),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	stopWorker()
	select {
	case <-auditDone:
	case <-time.After(auditDrainTimeout):
		logger.Warn("audit queue not drained before timeout")
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
