package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
)

// CreditLedger is the only writer of credit batches and balances.
type CreditLedger struct {
	repo    domainRepo.LedgerRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCreditLedger creates a new credit ledger
func NewCreditLedger(repo domainRepo.LedgerRepository, logger *zap.Logger, m *metrics.Metrics) *CreditLedger {
	return &CreditLedger{
		repo:    repo,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// RecordPurchase stores a completed checkout and grants its credits
func (l *CreditLedger) RecordPurchase(ctx context.Context, purchase *model.Purchase) (*model.PaymentTransaction, *model.AddResult, error) {
	if purchase.Account == "" {
		return nil, nil, domainErrors.ErrMissingAccount
	}
	if purchase.Credits <= 0 {
		return nil, nil, domainErrors.ErrInvalidCreditAmount
	}

	txn, result, err := l.repo.RecordPurchase(ctx, purchase, l.now())
	if err != nil {
		l.metrics.LedgerError("purchase")
		return nil, nil, err
	}

	if result.AlreadyApplied {
		l.logger.Info("Purchase already recorded",
			zap.String("account", purchase.Account),
			zap.String("gateway_session_id", purchase.GatewaySessionID))
		return txn, result, nil
	}

	l.metrics.LedgerCredits("granted", purchase.Credits)
	l.logger.Info("Credits granted for purchase",
		zap.String("account", purchase.Account),
		zap.String("gateway_session_id", purchase.GatewaySessionID),
		zap.Int("credits", purchase.Credits),
		zap.Int("debt_settled", result.DebtSettled),
		zap.Int("new_balance", result.NewBalance),
		zap.String("batch_id", result.BatchID.String()))
	return txn, result, nil
}

// AddCredits grants credits once per source transaction id
func (l *CreditLedger) AddCredits(ctx context.Context, account string, credits int, transactionID string) (*model.AddResult, error) {
	if account == "" {
		return nil, domainErrors.ErrMissingAccount
	}
	if credits <= 0 {
		return nil, domainErrors.ErrInvalidCreditAmount
	}

	result, err := l.repo.AddCredits(ctx, account, credits, transactionID, l.now())
	if err != nil {
		l.metrics.LedgerError("add")
		return nil, err
	}
	if !result.AlreadyApplied {
		l.metrics.LedgerCredits("granted", credits)
	}
	return result, nil
}

// DeductCredit takes one credit from the account's oldest spendable batch
func (l *CreditLedger) DeductCredit(ctx context.Context, account string) (*model.DeductResult, error) {
	result, err := l.repo.DeductCredit(ctx, account, l.now())
	if err != nil {
		l.metrics.LedgerError("deduct")
		return nil, err
	}
	if result.Success {
		l.metrics.LedgerCredits("deducted", 1)
		l.logger.Debug("Credit deducted",
			zap.String("account", account),
			zap.String("batch_id", result.BatchID.String()),
			zap.Int("remaining_in_batch", result.RemainingInBatch),
			zap.Int("new_balance", result.NewBalance))
	}
	return result, nil
}

// ProcessRefund takes back the credits granted by a refunded payment
func (l *CreditLedger) ProcessRefund(ctx context.Context, req *model.RefundRequest) (*model.RefundResult, error) {
	result, err := l.repo.ProcessRefund(ctx, req, l.now())
	if err != nil {
		l.metrics.LedgerError("refund")
		return nil, err
	}

	if result.Duplicate {
		l.logger.Info("Refund already processed",
			zap.String("gateway_refund_id", req.GatewayRefundID))
		return result, nil
	}

	l.metrics.LedgerCredits("refunded", result.CreditsDeducted)
	l.logger.Info("Refund processed",
		zap.String("gateway_payment_id", req.GatewayPaymentID),
		zap.String("gateway_refund_id", req.GatewayRefundID),
		zap.String("amount_refunded", req.AmountRefunded.String()),
		zap.Int("credits_deducted", result.CreditsDeducted),
		zap.Int("new_balance", result.NewBalance))
	return result, nil
}

// ExpireCredits zeroes expired batches, one transaction per account.
// Accounts that fail are logged and reported together after the sweep.
func (l *CreditLedger) ExpireCredits(ctx context.Context) (*model.ExpireResult, error) {
	now := l.now()
	accounts, err := l.repo.AccountsWithExpiredCredits(ctx, now)
	if err != nil {
		l.metrics.LedgerError("expire")
		return nil, err
	}

	result := &model.ExpireResult{}
	var errs []error
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		batches, credits, err := l.repo.ExpireAccount(ctx, account, now)
		if err != nil {
			l.metrics.LedgerError("expire")
			l.logger.Error("Failed to expire account credits",
				zap.String("account", account),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("account %s: %w", account, err))
			continue
		}
		if batches == 0 {
			continue
		}
		result.AccountsAffected++
		result.BatchesExpired += batches
		result.TotalCreditsExpired += credits
	}

	l.metrics.LedgerCredits("expired", result.TotalCreditsExpired)
	l.logger.Info("Credit expiry sweep finished",
		zap.Int("accounts", result.AccountsAffected),
		zap.Int("batches_expired", result.BatchesExpired),
		zap.Int("credits_expired", result.TotalCreditsExpired),
		zap.Int("failures", len(errs)))

	return result, errors.Join(errs...)
}

func (l *CreditLedger) GetBalance(ctx context.Context, account string) (*model.CreditBalance, error) {
	return l.repo.GetBalance(ctx, account)
}

func (l *CreditLedger) ListBatches(ctx context.Context, account string) ([]*model.CreditBatch, error) {
	return l.repo.ListBatches(ctx, account)
}

// VerifyBalance recomputes the balance from batches and reports drift
func (l *CreditLedger) VerifyBalance(ctx context.Context, account string) (*model.BalanceCheck, error) {
	check, err := l.repo.RecomputeBalance(ctx, account, l.now())
	if err != nil {
		return nil, err
	}
	if !check.Consistent() {
		l.metrics.BalanceMismatch()
		l.logger.Error("Credit balance drifted from batches",
			zap.String("account", account),
			zap.Int("cached", check.Cached),
			zap.Int("recomputed", check.Recomputed),
			zap.Int("owed", check.Owed))
		return check, &domainErrors.BalanceMismatchError{
			Account:    account,
			Cached:     check.Cached,
			Recomputed: check.Recomputed,
		}
	}
	return check, nil
}
