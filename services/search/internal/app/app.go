package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Armandase/seconde-main/pkg/database"
	"github.com/Armandase/seconde-main/pkg/health"
	pkgkafka "github.com/Armandase/seconde-main/pkg/kafka"
	"github.com/Armandase/seconde-main/pkg/pagination"
	"github.com/Armandase/seconde-main/pkg/tracing"
	"github.com/Armandase/seconde-main/services/search/internal/cache"
	"github.com/Armandase/seconde-main/services/search/internal/config"
	"github.com/Armandase/seconde-main/services/search/internal/engine"
	esengine "github.com/Armandase/seconde-main/services/search/internal/engine/elasticsearch"
	"github.com/Armandase/seconde-main/services/search/internal/engine/memory"
	"github.com/Armandase/seconde-main/services/search/internal/event"
	handler "github.com/Armandase/seconde-main/services/search/internal/handler/http"
	"github.com/Armandase/seconde-main/services/search/internal/service"
)

const serviceName = "search-service"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          engine.Store
	redis          *redis.Client
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Only configuration and wiring errors are fatal: an unreachable store,
// cache or broker leaves the service running in degraded mode.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "search",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if cfg.SlowStoreOpThreshold > 0 {
		database.SetSlowOperationLogging(cfg.SlowStoreOpThreshold, logger)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	// The index is created lazily; a cluster that is down at boot is not fatal.
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Error("ensure index failed, continuing without it",
			slog.String("engine", cfg.SearchEngine),
			slog.String("error", err.Error()),
		)
	}

	opts := []service.Option{
		service.WithCategoryBuckets(cfg.CategoryBuckets),
		service.WithLimits(pagination.Limits{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize}),
	}

	// Redis backs the category cache and event de-duplication.
	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, category cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
			if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, redisClient, "search"); err != nil {
				logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
			}
			opts = append(opts, service.WithCategoryCache(cache.NewCategoryCache(redisClient, cfg.CategoriesCacheTTL)))
		}
	}

	searchService := service.NewSearchService(store, logger, opts...)

	// Kafka listing ingestion.
	var (
		consumer *pkgkafka.Consumer
		dlq      *pkgkafka.DLQProducer
	)
	if cfg.KafkaEnabled() {
		var idempotency pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.KafkaIdempotencyTTL)
		if redisClient != nil {
			idempotency = pkgkafka.NewRedisIdempotencyStore(redisClient, "search:events:", cfg.KafkaIdempotencyTTL)
		}

		eventConsumer := event.NewConsumer(searchService, logger)
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    cfg.KafkaIngestTopic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		},
			pkgkafka.IdempotentHandler(idempotency, eventConsumer.Handle, logger),
			logger,
			pkgkafka.WithDeadLetter(dlq),
		)
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaIngestTopic),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler(serviceName)
	healthHandler.Register(cfg.SearchEngine, store.Ping)
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.KafkaEnabled() {
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	// HTTP router.
	router := handler.NewRouter(searchService, healthHandler, logger, handler.RouterConfig{
		Environment:      cfg.Environment,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		Limits:           pagination.Limits{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize},
		CategoriesMaxAge: cfg.CategoriesCacheTTL,
		RequestTimeout:   cfg.RequestTimeout,
		PprofEnabled:     cfg.PprofEnabled,
		PprofCIDRs:       cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		redis:          redisClient,
		consumer:       consumer,
		dlq:            dlq,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func newStore(cfg *config.Config, logger *slog.Logger) (engine.Store, error) {
	switch cfg.SearchEngine {
	case config.EngineMemory:
		eng, err := memory.New()
		if err != nil {
			return nil, fmt.Errorf("init memory engine: %w", err)
		}
		logger.Info("in-memory search engine initialized")
		return eng, nil
	default:
		eng, err := esengine.New(esengine.Config{
			Addresses: cfg.ElasticsearchURLs,
			Index:     cfg.ElasticsearchIndex,
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.Any("addresses", cfg.ElasticsearchURLs),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return eng, nil
	}
}

// Run starts the HTTP server and the Kafka consumer, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and dead-letter producer
// 4. Redis client
// 5. Document store
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Kafka.
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Redis.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. In-process stores hold resources; remote ones do not.
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Error("store close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
