package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/restoration-backend/internal/adapter/handler/http"
	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/restoration-backend/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/restoration-backend/internal/infrastructure/http"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/inference"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/preview"
	stripeProvider "github.com/wekeepgrowing/restoration-backend/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/ratelimit"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/scheduler"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/storage"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
	"github.com/wekeepgrowing/restoration-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.DefaultZapLogger("restore").Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log, cfg.Service.Name)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	packs, err := config.LoadCreditPacks(cfg.PacksFile)
	if err != nil {
		zapLogger.Fatal("Failed to load credit packs", zap.String("path", cfg.PacksFile), zap.Error(err))
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := database.NewConnection(ctx, &cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)
	m := metrics.NewDefault()

	var rdb *redis.Client
	publisher := messaging.Publisher(messaging.NopPublisher{})
	if cfg.Redis.Enabled() {
		rdb, err = messaging.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		publisher = messaging.NewRedisPublisher(rdb, cfg.Redis.Channel)
	}
	defer publisher.Close()

	limiter, err := newLimiter(ctx, cfg.RateLimit, rdb)
	if err != nil {
		zapLogger.Fatal("Failed to configure rate limiter", zap.Error(err))
	}

	// Providers
	gateway := stripeProvider.NewStripeProvider(
		cfg.Service.StripeSecretKey,
		cfg.Service.StripeWebhookSecret,
		cfg.Service.ClientURL,
		zapLogger,
	)
	s3Client, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to configure object storage", zap.Error(err))
	}
	objects := storage.NewS3Storage(s3Client, cfg.Storage.Bucket, cfg.Storage.PresignTTL, zapLogger)
	inferenceClient := inference.NewClient(cfg.Inference.URL, cfg.Inference.APIKey, cfg.Inference.Timeout, zapLogger)
	previews := preview.NewGenerator(cfg.Storage.PreviewWidths)

	// Use cases
	ledger := usecase.NewCreditLedger(repos.Ledger, zapLogger, m)
	quota := usecase.NewQuotaTracker(repos.Quota, cfg.Service.FreeTierLimit, cfg.Service.UpgradeURL,
		cfg.Service.QuotaReservationTTL, zapLogger, m)
	guard := usecase.NewWebhookGuard(repos.Webhook, zapLogger, m)
	usecase.RegisterPaymentHandlers(guard, ledger, gateway, zapLogger)
	checkout := usecase.NewCheckoutService(gateway, packs, zapLogger)
	restorations := usecase.NewRestorationService(
		repos.Sessions, ledger, quota, inferenceClient, objects, previews, publisher,
		usecase.RestorationOptions{
			AttemptTimeout: cfg.Inference.Timeout,
			RetryBackoff:   cfg.Inference.RetryBackoff,
		},
		zapLogger, m,
	)

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Handlers{
		Webhook:     handlers.NewWebhookHandler(zapLogger, gateway, guard),
		Checkout:    handlers.NewCheckoutHandler(zapLogger, checkout),
		Restoration: handlers.NewRestorationHandler(zapLogger, restorations, handlers.DefaultMaxImageBytes),
		Quota:       handlers.NewQuotaHandler(zapLogger, quota),
		Credit:      handlers.NewCreditHandler(zapLogger, ledger),
	}, limiter, m)
	httpSrv.AddHealthCheck("database", func(ctx context.Context) error { return database.Ping(ctx, db) })
	if rdb != nil {
		httpSrv.AddHealthCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	go scheduler.NewExpiryScheduler(ledger, cfg.Ledger.ExpiryInterval, zapLogger).Run(ctx)

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	grpcSrv.SetServing(true)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")
	grpcSrv.SetServing(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown servers
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}

var errRedisRequired = errors.New("rate_limit.backend redis requires redis.addr")

// newLimiter builds the configured rate limiter. A nil limiter disables limiting.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, rdb *redis.Client) (ratelimit.Limiter, error) {
	if cfg.Requests <= 0 {
		return nil, nil
	}
	switch cfg.Backend {
	case "redis":
		if rdb == nil {
			return nil, errRedisRequired
		}
		return ratelimit.NewRedisLimiter(rdb, "restore:ratelimit", cfg.Requests, cfg.Window), nil
	case "memory", "":
		limiter := ratelimit.NewMemoryLimiter(cfg.Requests, cfg.Window, cfg.Burst)
		limiter.StartJanitor(ctx)
		return limiter, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
