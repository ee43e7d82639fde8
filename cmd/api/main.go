package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hotel-ops/internal/api/http"
	"github.com/spec-kit/hotel-ops/internal/api/http/handlers"
	"github.com/spec-kit/hotel-ops/internal/auth"
	"github.com/spec-kit/hotel-ops/internal/config"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	"github.com/spec-kit/hotel-ops/internal/persistence"
	"github.com/spec-kit/hotel-ops/internal/repository"
	"github.com/spec-kit/hotel-ops/internal/repository/memory"
	"github.com/spec-kit/hotel-ops/internal/service"
	"github.com/spec-kit/hotel-ops/internal/session"
	"github.com/spec-kit/hotel-ops/internal/worker"
)

type repositories struct {
	hotels      repository.HotelRepository
	rooms       repository.RoomRepository
	items       repository.ItemRepository
	staff       repository.StaffRepository
	tickets     repository.TicketRepository
	history     repository.TicketHistoryRepository
	assignments repository.CleaningAssignmentRepository
	consumption repository.ConsumptionRepository
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		hotels:      repository.NewHotelRepository(pool),
		rooms:       repository.NewRoomRepository(pool),
		items:       repository.NewItemRepository(pool),
		staff:       repository.NewStaffRepository(pool),
		tickets:     repository.NewTicketRepository(pool),
		history:     repository.NewTicketHistoryRepository(pool),
		assignments: repository.NewCleaningAssignmentRepository(pool),
		consumption: repository.NewConsumptionRepository(pool),
	}
}

func memoryRepositories(store *memory.Store) repositories {
	return repositories{
		hotels:      store.Hotels(),
		rooms:       store.Rooms(),
		items:       store.Items(),
		staff:       store.Staff(),
		tickets:     store.Tickets(),
		history:     store.History(),
		assignments: store.Assignments(),
		consumption: store.Consumption(),
	}
}

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

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repositories
	var healthPG *persistence.Postgres
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, cfg.Postgres.DSN, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = postgresRepositories(pool)
		healthPG = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		repos = memoryRepositories(memory.New())
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		sessions session.Registry
		locker   worker.Locker
	)
	if redis != nil {
		sessions = session.NewRedisRegistry(redis.Client, cfg.Dispatch.SessionIdle())
		locker = worker.NewRedisLocker(redis.Client)
	} else {
		sessions = session.NewMemoryRegistry(cfg.Dispatch.SessionIdle())
		locker = worker.NewLocalLocker()
	}

	dispatcher := events.NewAsyncDispatcher(cfg.Events.Workers, cfg.Events.QueueSize, logger,
		service.SideEffectFailureHook(logger, metrics))
	dispatcher.Start(context.Background())

	loc := cfg.App.Location()
	rooms := service.NewRoomDirectory(repos.rooms, 0)
	go rooms.Start()
	defer rooms.Stop()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		StaffRepo:   repos.staff,
		HistoryRepo: repos.history,
		HotelRepo:   repos.hotels,
		Rooms:       rooms,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	cleaningService := service.NewCleaningService(service.CleaningDependencies{
		AssignmentRepo: repos.assignments,
		StaffRepo:      repos.staff,
		Rooms:          rooms,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	consumptionService := service.NewConsumptionService(service.ConsumptionDependencies{
		RecordRepo: repos.consumption,
		ItemRepo:   repos.items,
		HotelRepo:  repos.hotels,
		Rooms:      rooms,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Location:   loc,
	})
	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:  repos.tickets,
		StaffRepo:   repos.staff,
		HistoryRepo: repos.history,
		Staleness:   cfg.Dispatch.Staleness(),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(service.AuthDependencies{
		StaffRepo:    repos.staff,
		TokenManager: tokens,
		Sessions:     sessions,
		Dispatch:     dispatchService,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.staff, sessions)

	var rdb *goredis.Client
	if redis != nil {
		rdb = redis.Client
	}
	notifier, err := service.NewNotifier(cfg.Notification, rdb, logger)
	if err != nil {
		logger.Fatal("failed to build notifier", zap.Error(err))
	}
	worker.StartSideEffectSubscribers(
		service.NewNotificationService(dispatcher, notifier, logger),
		service.NewPMSSyncHandler(cfg.PMS, dispatcher, rooms, logger),
	)

	var wg sync.WaitGroup
	if cfg.Dispatch.Enabled {
		w := worker.NewDispatchWorker(dispatchService, sessions, locker, cfg.Dispatch.Interval(), cfg.Dispatch.LockTTL(), logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	if cfg.Clearing.Enabled {
		w := worker.NewClearingWorker(consumptionService, repos.hotels, locker, cfg.Clearing.Hour, loc, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthPG, redis),
		Staff:          handlers.NewStaffHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Cleaning:       handlers.NewCleaningHandler(cleaningService),
		Consumption:    handlers.NewConsumptionHandler(consumptionService, loc),
		Dispatch:       handlers.NewDispatchHandler(dispatchService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	wg.Wait()
	dispatcher.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
