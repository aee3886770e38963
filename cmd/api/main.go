package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agencyhub/internal/api"
	"agencyhub/internal/config"
	"agencyhub/internal/repository"
	"agencyhub/internal/repository/memory"
	"agencyhub/internal/service"
	"agencyhub/pkg/db"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/mq"
	"agencyhub/pkg/otel"
	"agencyhub/pkg/outbox"
	redisclient "agencyhub/pkg/redis"
)

var errNotConnected = errors.New("connection closed")

// repositories 是按 storage.driver 选出的一组存储实现
type repositories struct {
	clients     service.ClientRepository
	projects    service.ProjectRepository
	tasks       service.TaskRepository
	invoices    service.InvoiceRepository
	users       service.UserRepository
	resetTokens service.ResetTokenStore
	tx          service.Transactor
	events      outbox.Store
	readiness   map[string]api.ReadinessCheck
	close       func()
}

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting agencyhub api...",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("port", cfg.Server.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "agencyhub-api",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repos *repositories
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		repos = memoryRepositories(log)
	default:
		repos = postgresRepositories(ctx, cfg, log)
	}
	defer repos.close()

	// MQ Publisher：postgres 模式下是必需的，memory 模式下缺失时事件只留在 outbox 中
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	switch {
	case err == nil:
		defer publisher.Close()
		repos.readiness["rabbitmq"] = func(context.Context) error {
			if !publisher.IsConnected() {
				return errNotConnected
			}
			return nil
		}
	case cfg.Storage.Driver == config.DriverMemory:
		log.Warn("MQ publisher unavailable, notifications will stay in the outbox", zap.Error(err))
	default:
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}

	writer := outbox.NewWriter(repos.events)

	var admin *api.AdminHandler
	if publisher != nil {
		dispatcher := outbox.NewDispatcher(repos.events, publisher, log).
			WithInterval(cfg.Outbox.Interval()).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithMaxRetries(cfg.Outbox.MaxRetries)
		go dispatcher.Start(ctx)
		log.Info("Outbox dispatcher started", zap.Duration("interval", cfg.Outbox.Interval()))

		admin = api.NewAdminHandler(outbox.NewReplayService(repos.events, publisher, log), log)
	}

	// Services
	analytics := service.NewAnalyticsService(repos.users, repos.projects, repos.tasks, repos.invoices)
	authService := service.NewAuthService(repos.users, repos.resetTokens, writer, repos.tx, cfg.JWT.Secret, cfg.JWT.TTL(), log)

	router := api.NewRouter(api.RouterConfig{
		JWTSecret:   cfg.JWT.Secret,
		BasePath:    cfg.Server.BasePath,
		CORSOrigins: cfg.Server.CORSOrigins,
		Readiness:   repos.readiness,
	}, api.Handlers{
		Users:    api.NewUserHandler(authService, log),
		Clients:  api.NewClientHandler(service.NewClientService(repos.clients, log), log),
		Projects: api.NewProjectHandler(service.NewProjectService(repos.projects, log), log),
		Tasks:    api.NewTaskHandler(service.NewTaskService(repos.tasks, repos.tx, writer, log), log),
		Invoices: api.NewInvoiceHandler(service.NewInvoiceService(repos.invoices, repos.tx, writer, log), log),
		Insights: api.NewInsightHandler(
			service.NewDashboardService(repos.clients, repos.projects, repos.tasks, repos.invoices),
			analytics,
			service.NewReportService(analytics),
			log,
		),
		Admin: admin,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down agencyhub api gracefully...")

	// 先停 dispatcher，避免关闭连接后仍在发布
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("agencyhub api shutdown complete")
}

func postgresRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) *repositories {
	log.Info("Initializing database connection...")
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	if err := repository.Migrate(ctx, pool, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}

	return &repositories{
		clients:     repository.NewClientRepository(pool, log),
		projects:    repository.NewProjectRepository(pool, log),
		tasks:       repository.NewTaskRepository(pool, log),
		invoices:    repository.NewInvoiceRepository(pool, log),
		users:       repository.NewUserRepository(pool, log),
		resetTokens: repository.NewResetTokenRepository(rdb),
		tx:          db.NewTxManager(pool),
		events:      outbox.NewRepository(pool),
		readiness: map[string]api.ReadinessCheck{
			"database": pool.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
		close: func() {
			rdb.Close()
			pool.Close()
		},
	}
}

func memoryRepositories(log *zap.Logger) *repositories {
	log.Warn("Using in-memory storage, data is lost on restart")
	store := memory.NewStore()
	return &repositories{
		clients:     store.Clients(),
		projects:    store.Projects(),
		tasks:       store.Tasks(),
		invoices:    store.Invoices(),
		users:       store.Users(),
		resetTokens: store.ResetTokens(),
		tx:          store,
		events:      outbox.NewMemoryStore(),
		readiness:   map[string]api.ReadinessCheck{},
		close:       func() {},
	}
}
