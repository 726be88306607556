package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/agrilink/crm-sync/internal/api/http"
	"github.com/agrilink/crm-sync/internal/api/http/handlers"
	"github.com/agrilink/crm-sync/internal/auth"
	"github.com/agrilink/crm-sync/internal/config"
	"github.com/agrilink/crm-sync/internal/crm"
	"github.com/agrilink/crm-sync/internal/events"
	"github.com/agrilink/crm-sync/internal/fetch"
	"github.com/agrilink/crm-sync/internal/notify"
	"github.com/agrilink/crm-sync/internal/observability"
	"github.com/agrilink/crm-sync/internal/persistence"
	"github.com/agrilink/crm-sync/internal/repository"
	"github.com/agrilink/crm-sync/internal/service"
	"github.com/agrilink/crm-sync/internal/worker"
)

const tokenCacheKey = "crm:access_token"

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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	recordRepo := repository.NewRecordRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	tokenStore := repository.NewRedisTokenStore(redis.Client, tokenCacheKey)

	crmClient := crm.NewClient(cfg.CRM, tokenStore, logger, metrics)

	dispatcher := events.NewInMemoryDispatcher()
	telegram := notify.NewTelegramClient(cfg.Telegram, &http.Client{Timeout: 15 * time.Second})
	notifications := service.NewNotificationService(dispatcher, telegram, logger)
	notifications.RegisterHandlers()

	orchestrator := worker.New(worker.Dependencies{
		Records:    recordRepo,
		Profiles:   profileRepo,
		CRM:        crmClient,
		Fetcher:    fetch.NewHTTPFetcher(&http.Client{Timeout: 30 * time.Second}),
		Dispatcher: dispatcher,
	}, cfg.Sync, logger, metrics)

	var workers sync.WaitGroup
	if cfg.Sync.Enabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = orchestrator.Run(ctx)
		}()
	} else {
		logger.Warn("sync worker disabled, records will only move via the admin API")
	}

	authService := service.NewAuthService(*cfg)
	authMiddleware := auth.NewMiddleware(authService.TokenManager())

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(orchestrator, crmClient, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("service started",
		zap.String("addr", cfg.App.Addr()),
		zap.Bool("sync_enabled", cfg.Sync.Enabled))

	waitForShutdown(logger)

	cancel()
	workers.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
