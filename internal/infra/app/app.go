package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/core/port"
	"github.com/mugiisha/sop-sub001/internal/infra/config"
	"github.com/mugiisha/sop-sub001/internal/infra/database"
	kafkainfra "github.com/mugiisha/sop-sub001/internal/infra/kafka"
	"github.com/mugiisha/sop-sub001/internal/infra/logger"
	redisinfra "github.com/mugiisha/sop-sub001/internal/infra/redis"
	"github.com/mugiisha/sop-sub001/internal/infra/telemetry"
	postgresrepo "github.com/mugiisha/sop-sub001/internal/repository/postgres"
	redisrepo "github.com/mugiisha/sop-sub001/internal/repository/redis"
	"github.com/mugiisha/sop-sub001/internal/transport/http/middleware"
	"github.com/mugiisha/sop-sub001/internal/transport/http/routes"
	"github.com/mugiisha/sop-sub001/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	consumer *kafkainfra.ConsumerGroup
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	currentVersionCache := redisrepo.NewCurrentVersionCache(redisClient.Client(), cfg.Redis.CurrentVersionPrefix)
	cacheTTL := cfg.Redis.CurrentVersionTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	versionService := usecase.NewVersionService(repos.Versions, repos.Contents, currentVersionCache, eventPublisher, usecase.VersionOptions{
		CacheTTL:     cacheTTL,
		MaxRetries:   cfg.Ingest.MaxRetries,
		RetryBackoff: cfg.Ingest.RetryBackoff,
	}).WithLogger(log).WithMetrics(provider)

	var consumer *kafkainfra.ConsumerGroup
	if producer != nil {
		documentConsumer := kafkainfra.NewDocumentConsumer(versionService, cfg.Ingest.OperationTimeout, log).
			WithMetrics(provider)

		consumer, err = kafkainfra.NewConsumerGroup(&cfg.Kafka, []string{cfg.Kafka.DocumentTopic}, documentConsumer, log)
		if err != nil {
			_ = producer.Close()
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init consumer group: %w", err)
		}
	} else {
		log.Info("kafka unavailable, document ingestion disabled")
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), "", rateLimitWindow*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.Namespace,
	})
	if err != nil {
		log.Warn("failed to init http metrics", zap.Error(err))
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Versions:    versionService,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	consumerErrCh := make(chan error, 1)
	if a.consumer != nil {
		a.logger.Info("starting document event consumer",
			zap.String("topic", a.cfg.Kafka.DocumentTopic),
			zap.String("group_id", a.cfg.Kafka.GroupID),
		)
		go func() {
			if err := a.consumer.Run(ctx); err != nil && ctx.Err() == nil {
				consumerErrCh <- fmt.Errorf("run consumer group: %w", err)
			}
		}()
		defer func() {
			if err := a.consumer.Close(); err != nil {
				a.logger.Warn("close consumer group", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting version history API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-consumerErrCh:
		return err
	}
}
