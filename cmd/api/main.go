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

	httptransport "github.com/spec-kit/crm-support/internal/api/http"
	"github.com/spec-kit/crm-support/internal/api/http/handlers"
	"github.com/spec-kit/crm-support/internal/auth"
	"github.com/spec-kit/crm-support/internal/config"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/observability"
	"github.com/spec-kit/crm-support/internal/persistence"
	"github.com/spec-kit/crm-support/internal/repository"
	"github.com/spec-kit/crm-support/internal/repository/memory"
	"github.com/spec-kit/crm-support/internal/service"
	"github.com/spec-kit/crm-support/internal/worker"
)

// repositories groups the store implementations chosen at startup.
type repositories struct {
	tickets   repository.TicketRepository
	messages  repository.TicketMessageRepository
	history   repository.TicketHistoryRepository
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	purchases repository.PurchaseRepository
}

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{}
	var repos repositories
	if pool := pg.PoolHandle(); pool != nil {
		repos = repositories{
			tickets:   repository.NewTicketRepository(pool),
			messages:  repository.NewTicketMessageRepository(pool),
			history:   repository.NewTicketHistoryRepository(pool),
			admins:    repository.NewAdminRepository(pool),
			customers: repository.NewCustomerRepository(pool),
			purchases: repository.NewPurchaseRepository(pool),
		}
		dependencies["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		if err := seedDemoAccounts(store, cfg.Auth.BcryptCost); err != nil {
			logger.Fatal("failed to seed demo accounts", zap.Error(err))
		}
		repos = repositories{
			tickets:   store.Tickets(),
			messages:  store.Messages(),
			history:   store.History(),
			admins:    store.Admins(),
			customers: store.Customers(),
			purchases: store.Purchases(),
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable; sweep lock and stats cache disabled", zap.Error(err))
		redis = nil
	} else {
		dependencies["redis"] = redis
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.tickets,
		HistoryRepo:  repos.history,
		CustomerRepo: repos.customers,
		PurchaseRepo: repos.purchases,
		AdminRepo:    repos.admins,
		Dispatcher:   dispatcher,
		StatsCache:   persistence.NewStatsCache(redis, cfg.Stats.CacheTTL),
		RecentWindow: cfg.Stats.RecentWindow(),
		Logger:       logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  repos.tickets,
		AdminRepo:   repos.admins,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		TicketRepo:  repos.tickets,
		MessageRepo: repos.messages,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		AdminRepo:    repos.admins,
		CustomerRepo: repos.customers,
		TokenManager: tokenManager,
	})

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), logger)

	var sweeper *worker.EscalationSweeper
	if cfg.Escalation.SweepEnabled {
		sweeper, err = worker.NewEscalationSweeper(
			escalationService,
			persistence.NewRedisLocker(redis, cfg.Escalation.LockPrefix),
			metrics,
			logger,
			worker.SweeperConfig{Interval: cfg.Escalation.SweepInterval, LockTTL: cfg.Escalation.LockTTL},
		)
		if err != nil {
			logger.Fatal("failed to schedule escalation sweep", zap.Error(err))
		}
		sweeper.Start()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:    handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(ticketService, messageService),
		AdminTickets: handlers.NewAdminTicketsHandler(handlers.AdminTicketsDependencies{
			Tickets:     ticketService,
			Assignments: assignmentService,
			Messages:    messageService,
			Escalations: escalationService,
		}),
		Admins:         handlers.NewAdminsHandler(service.NewAdminDirectoryService(repos.admins)),
		AuthMiddleware: auth.NewAuthMiddleware(tokenManager, repos.admins, repos.customers),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
