package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/realty-crm/internal/api/http"
	"github.com/spec-kit/realty-crm/internal/api/http/handlers"
	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/config"
	"github.com/spec-kit/realty-crm/internal/events"
	"github.com/spec-kit/realty-crm/internal/observability"
	"github.com/spec-kit/realty-crm/internal/persistence"
	"github.com/spec-kit/realty-crm/internal/repository"
	"github.com/spec-kit/realty-crm/internal/service"
	"github.com/spec-kit/realty-crm/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	noteRepo := repository.NewClientNoteRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(*cfg, userRepo, dispatcher)
	clientService := service.NewClientService(service.ClientDependencies{
		ClientRepo:   clientRepo,
		NoteRepo:     noteRepo,
		UserRepo:     userRepo,
		PropertyRepo: propertyRepo,
		Dispatcher:   dispatcher,
	})
	propertyService := service.NewPropertyService(propertyRepo)
	dashboardService := service.NewDashboardService(clientRepo, userRepo, redis.ClientHandle(), logger, cfg.Dashboard)
	dashboardService.RegisterInvalidation(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Clients:        handlers.NewClientsHandler(clientService),
		Properties:     handlers.NewPropertiesHandler(propertyService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
