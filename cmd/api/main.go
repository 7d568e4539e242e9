package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/access"
	httptransport "github.com/spec-kit/console-access/internal/api/http"
	"github.com/spec-kit/console-access/internal/api/http/handlers"
	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/config"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/observability"
	"github.com/spec-kit/console-access/internal/persistence"
	"github.com/spec-kit/console-access/internal/policy"
	"github.com/spec-kit/console-access/internal/repository"
	"github.com/spec-kit/console-access/internal/service"
	"github.com/spec-kit/console-access/internal/session"
	"github.com/spec-kit/console-access/internal/worker"
)

const (
	auditQueueSize      = 256
	tracingFlushTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	doc, err := loadPolicyDocument(cfg.Access)
	if err != nil {
		logger.Fatal("failed to load console policy", zap.Error(err))
	}
	if _, err := doc.Compile(); err != nil {
		logger.Fatal("invalid console policy", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		userRepo repository.UserRepository
		permRepo repository.PermissionRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		userRepo = repository.NewUserRepository(pg.Pool)
		permRepo = repository.NewPermissionRepository(pg.Pool)
	} else {
		memory := repository.NewMemory()
		memory.SeedPolicy(doc.Roles)
		userRepo, permRepo = memory, memory
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var sessions session.Store = session.NewInMemory()
	if redis.Enabled() {
		sessions = session.NewRedis(redis.Client)
	}

	fileSource := policy.NewFileSource(cfg.Access.PolicyFile)
	var (
		policies policy.Source     = fileSource
		menus    policy.MenuSource = fileSource
	)
	if cfg.Access.PolicySource == config.PolicySourceDatabase {
		dbSource := policy.NewDBSource(permRepo, fileSource)
		policies, menus = dbSource, dbSource
	}

	dispatcher := events.NewInMemoryDispatcher()
	auditWorker := worker.NewAuditWorker(service.NewAuditService(dispatcher, logger), auditQueueSize, logger)
	auditWorker.Subscribe(dispatcher)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		auditWorker.Run(workerCtx)
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:       userRepo,
		PermissionRepo: permRepo,
		Policies:       policies,
		Sessions:       sessions,
		Tokens:         tokens,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	permissionService := service.NewPermissionService(permRepo, userRepo, dispatcher, metrics, logger)

	if cfg.Auth.BootstrapEmail != "" {
		user, created, err := authService.EnsureUser(ctx, "Administrator", cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword, domain.RoleID(cfg.Auth.BootstrapRole))
		if err != nil {
			logger.Fatal("failed to bootstrap user", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap user created", zap.String("user_id", user.ID), zap.String("role", cfg.Auth.BootstrapRole))
		}
	}

	guard := access.NewGuard(cfg.Access.SignInPath, cfg.Access.ForbiddenPath)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Access:         handlers.NewAccessHandler(guard, menus, metrics, logger),
		Admin:          handlers.NewAdminHandler(permissionService),
		AuthMiddleware: auth.NewMiddleware(tokens, sessions, logger),
		Guard:          guard,
		Decisions:      metrics,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	stopWorker()
	<-workerDone

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), tracingFlushTimeout)
	defer cancelFlush()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("flush traces", zap.Error(err))
	}
}

func loadPolicyDocument(cfg config.AccessConfig) (*policy.Document, error) {
	if cfg.PolicyFile == "" {
		return policy.DefaultDocument()
	}
	return policy.ReadFile(cfg.PolicyFile)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
