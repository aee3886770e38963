package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agencyhub/internal/config"
	"agencyhub/internal/mailer"
	"agencyhub/internal/mqhandler"
	"agencyhub/internal/repository"
	"agencyhub/internal/service"
	"agencyhub/pkg/db"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/mq"
	"agencyhub/pkg/otel"
	redisclient "agencyhub/pkg/redis"
	"agencyhub/pkg/util"
)

// queueName 每个 routing key 对应一个通知队列
func queueName(routingKey string) string {
	return routingKey + ".notify.q"
}

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting agencyhub worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("smtp_host", cfg.SMTP.Host),
	)

	// 用户数据要在 api 与 worker 之间共享，memory 存储无法做到
	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatal("Worker requires storage.driver=postgres", zap.String("driver", cfg.Storage.Driver))
	}

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "agencyhub-worker",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	// DB
	log.Info("Initializing database connection...")
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	// Redis：去重与重试计数
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL(), log)
	retries := util.NewRetryCounter(rdb, cfg.Worker.RetryTTL())

	sender, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		log.Fatal("Failed to init mailer", zap.Error(err))
	}

	users := repository.NewUserRepository(pool, log)
	notifier := service.NewNotificationService(users, sender, log)
	handler := mqhandler.NewNotificationHandler(notifier, deduper, retries, log).
		WithMaxRetries(cfg.Worker.MaxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := handler.Handlers()
	keys := make([]string, 0, len(handlers))
	for key := range handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	consumers := make([]*mq.Consumer, 0, len(keys))
	for _, key := range keys {
		queue := queueName(key)
		log.Info("Initializing MQ consumer...",
			zap.String("queue", queue),
			zap.String("routing_key", key),
		)
		consumer, err := mq.NewConsumer(cfg.MQ.URL, queue, key, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("routing_key", key), zap.Error(err))
		}
		consumer.SetHandler(handlers[key])
		consumers = append(consumers, consumer)

		go func(c *mq.Consumer, key string) {
			log.Info("Starting consumer", zap.String("routing_key", key))
			if err := c.StartConsuming(ctx); err != nil && ctx.Err() == nil {
				log.Fatal("Consumer failed", zap.String("routing_key", key), zap.Error(err))
			}
		}(consumer, key)
	}

	// HTTP Server (for health checks)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		for _, consumer := range consumers {
			if !consumer.IsConnected() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
				return
			}
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Worker.HealthAddr,
		Handler: router,
	}
	go func() {
		log.Info("Health server starting", zap.String("addr", cfg.Worker.HealthAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Health server failed", zap.Error(err))
		}
	}()

	log.Info("All consumers started, worker is ready to process messages", zap.Int("consumers", len(consumers)))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down agencyhub worker gracefully...")

	// 先取消订阅，正在处理的消息用未取消的 ctx 完成 ack
	for _, consumer := range consumers {
		consumer.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}

	for _, consumer := range consumers {
		consumer.Close()
	}

	log.Info("agencyhub worker shutdown complete")
}
