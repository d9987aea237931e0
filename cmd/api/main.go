package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"qrverify/docs"
	"qrverify/internal/config"
	"qrverify/internal/database"
	"qrverify/internal/database/migration"
	handlers "qrverify/internal/http/handler"
	"qrverify/internal/http/middleware"
	"qrverify/internal/logging"
	"qrverify/internal/otel"
	"qrverify/internal/qr"
	"qrverify/internal/repository"
	"qrverify/internal/repository/memory"
	mongorepo "qrverify/internal/repository/mongo"
	"qrverify/internal/repository/postgres"
	"qrverify/internal/service"
	"qrverify/internal/storage"
)

// @title QR Verify API
// @version 1.0
// @description Issues QR-watermarked copies of uploaded images and verifies them by identifier.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	log := logging.New(os.Stdout, loc, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	docRepo, closeRepo, err := openRecordStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	objStore, err := openObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svcMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	docSvc := service.NewDocumentService(objStore, docRepo, qr.NewRenderer(cfg.Image.QRRenderSize), service.Config{
		VerifyBaseURL:  cfg.VerifyBaseURL,
		StageTimeout:   cfg.StageTimeout(),
		CleanupOrphans: cfg.CleanupOrphans,
		JPEGQuality:    cfg.Image.JPEGQuality,
		MaxPixels:      cfg.Image.MaxPixels,
		Logger:         log.With("component", "service"),
		Metrics:        svcMetrics,
	})

	app := fiber.New(fiber.Config{
		// values from Ctx escape into spans, metrics and the async exporter
		Immutable:    true,
		ErrorHandler: handlers.ErrorHandler(log.With("component", "http")),
		BodyLimit:    cfg.MaxUploadBytes,
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	var uploadMiddleware []fiber.Handler
	if cfg.RateLimit.RPS > 0 {
		limiter, closeLimiter, err := newRateLimiter(ctx, cfg, reg, log)
		if err != nil {
			return err
		}
		defer closeLimiter()
		uploadMiddleware = append(uploadMiddleware, limiter)
	}

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, docRepo, docSvc, uploadMiddleware...)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "record_store", cfg.RecordStore, "object_store", cfg.ObjectStore)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRecordStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (repository.DocumentRepository, func(), error) {
	switch cfg.RecordStore {
	case config.RecordStorePostgres:
		// Initialize PostgreSQL connection (with pooling via database/sql)
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewDocumentPostgres(db), func() { _ = db.Close() }, nil

	case config.RecordStoreMongo:
		client, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		repo := mongorepo.NewDocumentMongo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return repo, closeFn, nil

	case config.RecordStoreMemory:
		log.Warn("using in-memory record store; documents are lost on restart")
		return memory.NewDocumentMemory(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported record store %q", cfg.RecordStore)
}

func openObjectStore(ctx context.Context, cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreS3:
		return storage.NewS3(ctx, cfg.S3)
	case config.ObjectStoreMinIO:
		return storage.NewMinIO(cfg.MinIO)
	}
	return nil, errors.New("unsupported object store " + cfg.ObjectStore)
}

func newRateLimiter(ctx context.Context, cfg *config.AppConfig, reg prometheus.Registerer, log *slog.Logger) (fiber.Handler, func(), error) {
	rlMetrics, err := middleware.NewRateLimitMetrics(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register rate limit metrics: %w", err)
	}
	rl := cfg.RateLimit

	if cfg.Redis.Addr == "" {
		return middleware.MemoryRateLimit(rl.RPS, rl.Burst, rlMetrics), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("rate limiter configured", "limiter", "redis", "addr", cfg.Redis.Addr)

	window := time.Duration(rl.WindowSec) * time.Second
	return middleware.RedisRateLimit(client, rl.RPS, rl.Burst, window, rlMetrics), func() { _ = client.Close() }, nil
}
