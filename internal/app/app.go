package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	mailer "github.com/utafrali/storefront/internal/mail"
	mailmock "github.com/utafrali/storefront/internal/mail/mock"
	mailsmtp "github.com/utafrali/storefront/internal/mail/smtp"
	"github.com/utafrali/storefront/internal/media"
	"github.com/utafrali/storefront/internal/media/cloud"
	"github.com/utafrali/storefront/internal/media/memory"
	mediaS3 "github.com/utafrali/storefront/internal/media/s3"
	"github.com/utafrali/storefront/internal/repository"
	mongorepo "github.com/utafrali/storefront/internal/repository/mongo"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Version is reported in traces.
var Version = "dev"

// accessTokenTTL only applies to tokens this service signs itself.
const accessTokenTTL = 15 * time.Minute

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	dlqWriter      *kafka.Writer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	rateLimiter    *middleware.RateLimiter
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	// Release whatever was opened if a later step fails.
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(pkgkafka.Collectors()...)
	registry.MustRegister(httpclient.Collectors()...)

	healthHandler := health.NewHandler(5 * time.Second)

	// Persistence.
	var repo repository.ProductRepository
	switch cfg.StoreDriver {
	case config.StoreMongo:
		a.mongoClient, err = mongorepo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		repo = mongorepo.NewProductRepository(a.mongoClient.Database(cfg.MongoDB))
		healthHandler.Register("mongodb", func(ctx context.Context) error {
			return a.mongoClient.Ping(ctx, nil)
		})
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDB))
	default:
		a.pool, err = database.NewPostgresPool(ctx, &database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err = database.RegisterPoolMetrics(registry, a.pool, handler.ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		repo = postgres.NewProductRepository(a.pool)
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return a.pool.Ping(ctx)
		})
	}

	// Optional Redis: product cache and consumer idempotency.
	var idempotency pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	if cfg.RedisEnabled {
		a.redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		if cfg.CacheTTLSeconds > 0 {
			repo = cache.NewProductRepository(repo, a.redisClient, cfg.CacheTTL(), logger)
		}
		idempotency = pkgkafka.NewRedisIdempotencyStore(a.redisClient, 24*time.Hour)
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.redisClient.Ping(ctx).Err()
		})
		logger.Info("redis enabled", slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)))
	}

	// Media host.
	host, err := newMediaHost(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ingestor := media.NewIngestor(host, cfg.MediaFolder, logger)

	// Mail.
	var sender mailer.Sender
	switch cfg.MailDriver {
	case config.MailSMTP:
		smtpSender, err := mailsmtp.NewSender(mailsmtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("create smtp sender: %w", err)
		}
		sender = smtpSender
	default:
		sender = mailmock.NewMockSender(logger)
	}
	notificationService := service.NewNotificationService(mailer.NewRenderer(cfg.FrontendURL), sender, logger)

	// Kafka.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{Brokers: cfg.KafkaBrokers}, logger)
		a.dlqWriter = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
		a.consumer = event.NewConsumer(
			cfg.KafkaBrokers,
			event.NewConsumerHandler(notificationService, logger),
			idempotency,
			pkgkafka.NewDLQProducer(a.dlqWriter, logger),
			logger,
		)
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka enabled", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(a.producer, logger)

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, accessTokenTTL)

	router := handler.NewRouter(handler.RouterDeps{
		Products:      service.NewProductService(repo, ingestor, eventProducer, logger),
		Reviews:       service.NewReviewService(repo, eventProducer, logger),
		Notifications: notificationService,
		ValidateToken: jwtManager.Validator(),
		Health:        healthHandler,
		Metrics:       middleware.NewHTTPMetrics(registry, handler.ServiceName),
		Gatherer:      registry,
		CORS:          middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		RateLimiter:   a.rateLimiter,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return a, nil
}

func newMediaHost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (media.Host, error) {
	switch cfg.MediaDriver {
	case config.MediaS3:
		host, err := mediaS3.New(ctx, mediaS3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 media host: %w", err)
		}
		logger.Info("media host: s3", slog.String("bucket", cfg.S3Bucket))
		return host, nil
	case config.MediaCloud:
		logger.Info("media host: cloud", slog.String("url", cfg.MediaHostURL))
		return cloud.New(cloud.Config{
			BaseURL: cfg.MediaHostURL,
			APIKey:  cfg.MediaHostAPIKey,
			Timeout: cfg.MediaTimeout(),
		}, logger), nil
	default:
		logger.Warn("media host: in-memory, images are not persisted")
		return memory.New(cfg.MediaBaseURL), nil
	}
}

// Run starts the HTTP server and the Kafka consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.rateLimiter != nil {
		go a.rateLimiter.Janitor(ctx)
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeResources()

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeResources() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.dlqWriter != nil {
		if err := a.dlqWriter.Close(); err != nil {
			a.logger.Error("kafka dlq writer close error", slog.String("error", err.Error()))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
