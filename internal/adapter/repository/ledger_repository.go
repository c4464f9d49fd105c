package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
)

type batchSum struct {
	Total int
}

// ledgerRepository implements the LedgerRepository interface
type ledgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

// lockBalance returns the account's balance row locked FOR UPDATE, creating it when missing.
func lockBalance(tx *gorm.DB, account string) (*model.CreditBalance, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CreditBalance{Account: account}).Error; err != nil {
		return nil, fmt.Errorf("failed to create balance row: %w", err)
	}

	var balance model.CreditBalance
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ?", account).
		First(&balance).Error; err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return &balance, nil
}

// liveBatches loads the account's batches that still hold credits, oldest first.
func liveBatches(tx *gorm.DB, account string) ([]*model.CreditBatch, error) {
	var batches []*model.CreditBatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account = ? AND credits_remaining > 0", account).
		Order("purchase_date ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load credit batches: %w", err)
	}
	return batches, nil
}

func saveRemaining(tx *gorm.DB, batches []*model.CreditBatch, now time.Time) error {
	for _, b := range batches {
		if err := tx.Model(&model.CreditBatch{}).
			Where("id = ?", b.ID).
			Updates(map[string]interface{}{
				"credits_remaining": b.CreditsRemaining,
				"updated_at":        now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update batch %s: %w", b.ID, err)
		}
	}
	return nil
}

func saveBalance(tx *gorm.DB, balance *model.CreditBalance, now time.Time) error {
	balance.UpdatedAt = now
	if err := tx.Model(&model.CreditBalance{}).
		Where("account = ?", balance.Account).
		Updates(map[string]interface{}{
			"available_credits": balance.AvailableCredits,
			"credits_owed":      balance.CreditsOwed,
			"updated_at":        now,
		}).Error; err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// sweepLocked zeroes expired batches of an already locked account and
// subtracts them from the balance. It returns the batches still holding credits.
func sweepLocked(tx *gorm.DB, balance *model.CreditBalance, now time.Time) ([]*model.CreditBatch, int, int, error) {
	batches, err := liveBatches(tx, balance.Account)
	if err != nil {
		return nil, 0, 0, err
	}
	expired, credits := model.ExpireBatches(batches, now)
	if len(expired) == 0 {
		return batches, 0, 0, nil
	}
	if err := saveRemaining(tx, expired, now); err != nil {
		return nil, 0, 0, err
	}
	balance.AvailableCredits -= credits
	return batches, len(expired), credits, nil
}

// addCreditsLocked grants credits to a locked account, once per source transaction id.
// swept is the number of batches the caller expired in the same transaction;
// the balance is written even when the grant itself is a repeat.
func addCreditsLocked(tx *gorm.DB, balance *model.CreditBalance, credits int, sourceID string, swept int, now time.Time) (*model.AddResult, error) {
	var existing model.CreditBatch
	err := tx.Where("source_transaction_id = ?", sourceID).First(&existing).Error
	if err == nil {
		if swept > 0 {
			if err := saveBalance(tx, balance, now); err != nil {
				return nil, err
			}
		}
		return &model.AddResult{
			NewBalance:     balance.AvailableCredits,
			BatchID:        existing.ID,
			AlreadyApplied: true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing batch: %w", err)
	}

	remaining, stillOwed := model.SettleDebt(balance.CreditsOwed, credits)
	settled := balance.CreditsOwed - stillOwed

	batch := &model.CreditBatch{
		ID:                  uuid.New(),
		Account:             balance.Account,
		CreditsPurchased:    credits,
		CreditsRemaining:    remaining,
		PurchaseDate:        now,
		ExpirationDate:      model.ExpirationFor(now),
		SourceTransactionID: sourceID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("failed to create credit batch: %w", err)
	}

	balance.CreditsOwed = stillOwed
	balance.AvailableCredits += credits
	if err := saveBalance(tx, balance, now); err != nil {
		return nil, err
	}

	return &model.AddResult{
		NewBalance:  balance.AvailableCredits,
		BatchID:     batch.ID,
		DebtSettled: settled,
	}, nil
}

// RecordPurchase stores the payment transaction and its credit batch together
func (r *ledgerRepository) RecordPurchase(ctx context.Context, purchase *model.Purchase, now time.Time) (*model.PaymentTransaction, *model.AddResult, error) {
	var txn *model.PaymentTransaction
	var result *model.AddResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, purchase.Account)
		if err != nil {
			return err
		}

		var existing model.PaymentTransaction
		err = tx.Where("gateway_session_id = ?", purchase.GatewaySessionID).First(&existing).Error
		switch {
		case err == nil:
			txn = &existing
			result, err = addCreditsLocked(tx, balance, existing.CreditsPurchased, existing.GatewaySessionID, 0, now)
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to check existing transaction: %w", err)
		}

		metadata := purchase.Metadata
		if metadata == nil {
			metadata = model.JSONB{}
		}
		txn = &model.PaymentTransaction{
			Account:          purchase.Account,
			GatewaySessionID: purchase.GatewaySessionID,
			GatewayPaymentID: purchase.GatewayPaymentID,
			Amount:           purchase.Amount,
			Currency:         purchase.Currency,
			CreditsPurchased: purchase.Credits,
			Status:           model.PaymentStatusCompleted,
			Metadata:         metadata,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to create payment transaction: %w", err)
		}

		_, swept, _, err := sweepLocked(tx, balance, now)
		if err != nil {
			return err
		}

		result, err = addCreditsLocked(tx, balance, purchase.Credits, purchase.GatewaySessionID, swept, now)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to record purchase",
			zap.String("account", purchase.Account),
			zap.String("gateway_session_id", purchase.GatewaySessionID),
			zap.Error(err))
		return nil, nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	return txn, result, nil
}

// AddCredits grants credits to an account, once per source transaction id
func (r *ledgerRepository) AddCredits(ctx context.Context, account string, credits int, sourceTransactionID string, now time.Time) (*model.AddResult, error) {
	var result *model.AddResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, account)
		if err != nil {
			return err
		}
		_, swept, _, err := sweepLocked(tx, balance, now)
		if err != nil {
			return err
		}
		result, err = addCreditsLocked(tx, balance, credits, sourceTransactionID, swept, now)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to add credits",
			zap.String("account", account),
			zap.Int("credits", credits),
			zap.String("source_transaction_id", sourceTransactionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}

	return result, nil
}

// DeductCredit consumes one credit from the account's oldest spendable batch
func (r *ledgerRepository) DeductCredit(ctx context.Context, account string, now time.Time) (*model.DeductResult, error) {
	result := &model.DeductResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var balance model.CreditBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account = ?", account).
			First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no balance row means no batches
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}

		batches, expired, _, err := sweepLocked(tx, &balance, now)
		if err != nil {
			return err
		}

		batch := model.OldestSpendable(batches, now)
		if batch == nil {
			result.NewBalance = balance.AvailableCredits
			if expired > 0 {
				return saveBalance(tx, &balance, now)
			}
			return nil
		}

		batch.CreditsRemaining--
		if err := saveRemaining(tx, []*model.CreditBatch{batch}, now); err != nil {
			return err
		}
		balance.AvailableCredits--
		if err := saveBalance(tx, &balance, now); err != nil {
			return err
		}

		result.Success = true
		result.BatchID = batch.ID
		result.RemainingInBatch = batch.CreditsRemaining
		result.NewBalance = balance.AvailableCredits
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to deduct credit",
			zap.String("account", account),
			zap.Error(err))
		return nil, fmt.Errorf("failed to deduct credit: %w", err)
	}

	return result, nil
}

// ProcessRefund takes back the credits granted by a refunded payment, once per refund id
func (r *ledgerRepository) ProcessRefund(ctx context.Context, req *model.RefundRequest, now time.Time) (*model.RefundResult, error) {
	result := &model.RefundResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn model.PaymentTransaction
		err := tx.Where("gateway_payment_id = ?", req.GatewayPaymentID).
			Order("id ASC").
			First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainErrors.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find payment transaction: %w", err)
		}

		balance, err := lockBalance(tx, txn.Account)
		if err != nil {
			return err
		}
		// status may have changed while waiting for the balance lock
		var locked model.PaymentTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", txn.ID).
			First(&locked).Error; err != nil {
			return fmt.Errorf("failed to lock payment transaction: %w", err)
		}
		txn = locked

		var existing model.Refund
		err = tx.Where("gateway_refund_id = ?", req.GatewayRefundID).First(&existing).Error
		if err == nil {
			result.Duplicate = true
			result.CreditsDeducted = existing.CreditsDeducted
			result.NewBalance = balance.AvailableCredits
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing refund: %w", err)
		}

		batches, _, _, err := sweepLocked(tx, balance, now)
		if err != nil {
			return err
		}

		credits := txn.CreditsPurchased
		if txn.Status == model.PaymentStatusRefunded {
			// credits were already taken back by an earlier refund of this payment
			credits = 0
		}

		var purchaseBatch uuid.UUID
		for _, b := range batches {
			if b.SourceTransactionID == txn.GatewaySessionID {
				purchaseBatch = b.ID
			}
		}
		touched, shortfall := model.ReclaimCredits(batches, purchaseBatch, credits, now)
		if err := saveRemaining(tx, touched, now); err != nil {
			return err
		}

		balance.CreditsOwed += shortfall
		balance.AvailableCredits -= credits
		if err := saveBalance(tx, balance, now); err != nil {
			return err
		}

		refund := &model.Refund{
			TransactionID:   txn.ID,
			GatewayRefundID: req.GatewayRefundID,
			AmountRefunded:  req.AmountRefunded,
			Currency:        req.Currency,
			CreditsDeducted: credits,
			CreatedAt:       now,
		}
		if err := tx.Create(refund).Error; err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}

		if txn.Status != model.PaymentStatusRefunded {
			if err := tx.Model(&model.PaymentTransaction{}).
				Where("id = ?", txn.ID).
				Updates(map[string]interface{}{
					"status":     model.PaymentStatusRefunded,
					"updated_at": now,
				}).Error; err != nil {
				return fmt.Errorf("failed to mark transaction refunded: %w", err)
			}
		}

		result.CreditsDeducted = credits
		result.NewBalance = balance.AvailableCredits
		return nil
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			return nil, err
		}
		r.logger.Error("Failed to process refund",
			zap.String("gateway_payment_id", req.GatewayPaymentID),
			zap.String("gateway_refund_id", req.GatewayRefundID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to process refund: %w", err)
	}

	return result, nil
}

// AccountsWithExpiredCredits lists accounts whose expired batches still hold credits
func (r *ledgerRepository) AccountsWithExpiredCredits(ctx context.Context, now time.Time) ([]string, error) {
	var accounts []string
	err := r.db.WithContext(ctx).
		Model(&model.CreditBatch{}).
		Distinct("account").
		Where("expiration_date <= ? AND credits_remaining > 0", now).
		Order("account").
		Pluck("account", &accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with expired credits: %w", err)
	}
	return accounts, nil
}

// ExpireAccount zeroes one account's expired batches
func (r *ledgerRepository) ExpireAccount(ctx context.Context, account string, now time.Time) (int, int, error) {
	var batches, credits int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx, account)
		if err != nil {
			return err
		}
		_, batches, credits, err = sweepLocked(tx, balance, now)
		if err != nil {
			return err
		}
		if batches == 0 {
			return nil
		}
		return saveBalance(tx, balance, now)
	})
	if err != nil {
		r.logger.Error("Failed to expire credits",
			zap.String("account", account),
			zap.Error(err))
		return 0, 0, fmt.Errorf("failed to expire credits: %w", err)
	}

	return batches, credits, nil
}

// GetBalance retrieves the cached balance of an account
func (r *ledgerRepository) GetBalance(ctx context.Context, account string) (*model.CreditBalance, error) {
	var balance model.CreditBalance

	err := r.db.WithContext(ctx).
		Where("account = ?", account).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Return zero balance if not found
			return &model.CreditBalance{Account: account}, nil
		}
		r.logger.Error("Failed to get credit balance",
			zap.String("account", account),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get credit balance: %w", err)
	}

	return &balance, nil
}

// ListBatches returns an account's batches oldest first
func (r *ledgerRepository) ListBatches(ctx context.Context, account string) ([]*model.CreditBatch, error) {
	var batches []*model.CreditBatch
	err := r.db.WithContext(ctx).
		Where("account = ?", account).
		Order("purchase_date ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credit batches: %w", err)
	}
	return batches, nil
}

// RecomputeBalance compares the cached balance with the sum of unexpired batches
func (r *ledgerRepository) RecomputeBalance(ctx context.Context, account string, now time.Time) (*model.BalanceCheck, error) {
	balance, err := r.GetBalance(ctx, account)
	if err != nil {
		return nil, err
	}

	var sum batchSum
	err = r.db.WithContext(ctx).
		Model(&model.CreditBatch{}).
		Select("COALESCE(SUM(credits_remaining), 0) AS total").
		Where("account = ? AND expiration_date > ?", account, now).
		Scan(&sum).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum credit batches: %w", err)
	}

	return &model.BalanceCheck{
		Account:    account,
		Cached:     balance.AvailableCredits,
		Recomputed: sum.Total - balance.CreditsOwed,
		Owed:       balance.CreditsOwed,
	}, nil
}
