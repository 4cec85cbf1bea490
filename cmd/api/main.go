package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/hse-tools/permit-service/internal/api/http"
	"github.com/hse-tools/permit-service/internal/api/http/handlers"
	"github.com/hse-tools/permit-service/internal/auth"
	"github.com/hse-tools/permit-service/internal/config"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/notifications"
	"github.com/hse-tools/permit-service/internal/observability"
	"github.com/hse-tools/permit-service/internal/persistence"
	"github.com/hse-tools/permit-service/internal/repository"
	"github.com/hse-tools/permit-service/internal/repository/memory"
	"github.com/hse-tools/permit-service/internal/service"
	"github.com/hse-tools/permit-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var (
		userRepo    repository.UserRepository
		itemRepo    repository.ItemRepository
		requestRepo repository.RequestRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		itemRepo = repository.NewItemRepository(pool)
		requestRepo = repository.NewRequestRepository(pool)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		userRepo, itemRepo, requestRepo = store.Users(), store.Items(), store.Requests()
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := notifications.NewNotifier(redis.Client)
	notificationService := service.NewNotificationService(dispatcher, notifier, logger, cfg.Notification)
	if err := worker.StartNotificationWorker(ctx, notificationService, notifier, logger); err != nil {
		logger.Warn("notification delivery log unavailable", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
	})
	itemService := service.NewItemService(service.ItemDependencies{
		ItemRepo:    itemRepo,
		RequestRepo: requestRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: requestRepo,
		ItemRepo:    itemRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	directoryService := service.NewDirectoryService(userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSAllowOrigins)

	var pgPinger, redisPinger handlers.Pinger
	if pg.PoolHandle() != nil {
		pgPinger = pg
	}
	if redis.Client != nil {
		redisPinger = redis
	}
	requestsHandler := handlers.NewRequestsHandler(requestService)
	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pgPinger, redisPinger),
		Auth:           handlers.NewAuthHandler(authService),
		Items:          handlers.NewItemsHandler(itemService),
		MOC:            handlers.NewMOCHandler(itemService),
		Requests:       requestsHandler,
		Contractors:    handlers.NewContractorsHandler(directoryService, requestsHandler),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	}
	if cfg.Metrics.Enabled {
		routes.MetricsGatherer = registry
		routes.MetricsPath = cfg.Metrics.Path
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
