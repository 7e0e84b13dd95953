package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"vilatur/internal/cache"
	"vilatur/internal/config"
	"vilatur/internal/database"
	"vilatur/internal/handler"
	"vilatur/internal/logger"
	"vilatur/internal/observability/tracing"
	"vilatur/internal/queue"
	"vilatur/internal/redis"
	"vilatur/internal/repository"
	"vilatur/internal/service"
	"vilatur/internal/session"
	"vilatur/internal/storage"
	"vilatur/internal/worker"
)

const (
	serviceName     = "vilatur"
	shutdownTimeout = 30 * time.Second
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	// 3. Connect to Database
	db, err := database.Connect(cfg.DSN(), log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db, log); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	imageRepo := repository.NewImageRepository(db)

	// 4. Object storage
	var blobs storage.BlobStore
	if cfg.ObjectStorageConfigured() {
		s3Store, err := storage.NewS3Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init object storage: %w", err)
		}
		blobs = s3Store
	} else {
		log.Warn("object storage not configured, images are kept in memory and lost on restart")
		blobs = storage.NewMemoryStore()
	}

	// 5. Redis: directory cache and image cleanup queue (optional)
	var (
		directory cache.DirectoryCache = cache.NoopDirectoryCache{}
		publisher queue.Publisher      = queue.DisabledPublisher{}
		consumer  queue.Consumer
	)
	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rc.Close()

		directory = cache.NewDirectoryCache(rc.Client, cfg.DirectoryCacheTTL, log)
		publisher = queue.NewPublisher(rc.Client, log)
		consumer = queue.NewConsumer(rc.Client, log)
	} else {
		log.Warn("redis not configured, directory cache and cleanup retries disabled")
	}

	// 6. Services
	janitor := service.NewImageJanitor(imageRepo, blobs, publisher, log)
	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo, listingRepo, cfg.MinPasswordLength, log)
	listingService := service.NewListingService(listingRepo, userRepo, directory, janitor, cfg.SearchFallbackToAll, log)
	imageService := service.NewImageService(db, imageRepo, listingRepo, userRepo, blobs, janitor, directory, cfg.MaxImageBytes, log)

	// 7. Cleanup workers
	if consumer != nil {
		managerCfg := worker.DefaultManagerConfig()
		managerCfg.WorkerCount = cfg.CleanupWorkers
		manager := worker.NewManager(consumer, worker.NewHandler(janitor, publisher, worker.DefaultMaxAttempts, log), managerCfg, log)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cleanup workers: %w", err)
		}
		defer manager.Stop()
	}

	// 8. Handlers and router
	sessions := session.NewStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.CookieSecure)
	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userService, authService, sessions, log),
		UserHandler:    handler.NewUserHandler(userService, log),
		ListingHandler: handler.NewListingHandler(listingService, log),
		ImageHandler:   handler.NewImageHandler(imageService, log),
		JWTSecret:      cfg.JWTSecret,
		Sessions:       sessions,
		Log:            log,
	})

	server := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 9. Serve until a shutdown signal arrives
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
