package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/config"
	domainErrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/database"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	verify := flag.String("verify", "", "comma-separated accounts whose cached balance is checked after the sweep")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline for the sweep")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.DefaultZapLogger("restore").Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log, cfg.Service.Name+"-expire-credits")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
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

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)
	ledger := usecase.NewCreditLedger(repos.Ledger, zapLogger, metrics.NewNop())

	exitCode := 0
	result, err := ledger.ExpireCredits(ctx)
	if err != nil {
		zapLogger.Error("Credit expiry sweep finished with errors", zap.Error(err))
		exitCode = 1
	}
	if result != nil {
		zapLogger.Info("Credit expiry sweep complete",
			zap.Int("accounts", result.AccountsAffected),
			zap.Int("batches", result.BatchesExpired),
			zap.Int("credits", result.TotalCreditsExpired))
	}

	for _, account := range splitAccounts(*verify) {
		check, err := ledger.VerifyBalance(ctx, account)
		var mismatch *domainErrors.BalanceMismatchError
		switch {
		case errors.As(err, &mismatch):
			exitCode = 1
		case err != nil:
			zapLogger.Error("Balance verification failed", zap.String("account", account), zap.Error(err))
			exitCode = 1
		default:
			zapLogger.Info("Balance consistent",
				zap.String("account", account),
				zap.Int("available", check.Cached),
				zap.Int("owed", check.Owed))
		}
	}

	return exitCode
}

func splitAccounts(s string) []string {
	var accounts []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	return accounts
}
