package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// Migrate creates tables, check constraints and the partial indexes GORM cannot express
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.PaymentTransaction{},
		&model.Refund{},
		&model.CreditBatch{},
		&model.CreditBalance{},
		&model.WebhookEvent{},
		&model.QuotaRecord{},
		&model.RestorationSession{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

var customIndexes = []string{
	// spendable batches in FIFO order
	`CREATE INDEX IF NOT EXISTS idx_credit_batches_spendable ON credit_batches (account, purchase_date, id) WHERE credits_remaining > 0`,
	// expiry sweep
	`CREATE INDEX IF NOT EXISTS idx_credit_batches_expiring ON credit_batches (expiration_date) WHERE credits_remaining > 0`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON webhook_events (created_at) WHERE status IN ('pending', 'failed')`,
	`CREATE INDEX IF NOT EXISTS idx_restoration_sessions_open ON restoration_sessions (updated_at) WHERE status IN ('pending', 'processing')`,
}

func createCustomIndexes(db *gorm.DB) error {
	for _, stmt := range customIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
