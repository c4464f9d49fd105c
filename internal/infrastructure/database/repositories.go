package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/restoration-backend/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Ledger   domainRepo.LedgerRepository
	Webhook  domainRepo.WebhookEventRepository
	Quota    domainRepo.QuotaRepository
	Sessions domainRepo.SessionRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Ledger:   repository.NewLedgerRepository(db, logger),
		Webhook:  repository.NewWebhookEventRepository(db, logger),
		Quota:    repository.NewQuotaRepository(db, logger),
		Sessions: repository.NewSessionRepository(db, logger),
	}
}
