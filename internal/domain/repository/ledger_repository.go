package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// LedgerRepository owns every write to credit batches and balances.
// Each method runs in one database transaction that locks the account's
// balance row first, so mutations for one account serialize.
type LedgerRepository interface {
	// RecordPurchase stores the payment transaction and grants its credits.
	// A repeated gateway session id returns the original grant with AlreadyApplied set.
	RecordPurchase(ctx context.Context, purchase *model.Purchase, now time.Time) (*model.PaymentTransaction, *model.AddResult, error)

	// AddCredits grants credits from a source transaction id, once per id.
	AddCredits(ctx context.Context, account string, credits int, sourceTransactionID string, now time.Time) (*model.AddResult, error)

	// DeductCredit consumes one credit from the oldest spendable batch.
	// Success is false and nothing changes when no batch is spendable.
	DeductCredit(ctx context.Context, account string, now time.Time) (*model.DeductResult, error)

	// ProcessRefund takes back the credits granted by the refunded payment, once per refund id.
	ProcessRefund(ctx context.Context, req *model.RefundRequest, now time.Time) (*model.RefundResult, error)

	// AccountsWithExpiredCredits lists accounts holding expired batches with credits left.
	AccountsWithExpiredCredits(ctx context.Context, now time.Time) ([]string, error)

	// ExpireAccount zeroes the account's expired batches.
	ExpireAccount(ctx context.Context, account string, now time.Time) (batches int, credits int, err error)

	// GetBalance returns the cached balance, or a zero balance for an unknown account.
	GetBalance(ctx context.Context, account string) (*model.CreditBalance, error)

	// ListBatches returns the account's batches oldest first.
	ListBatches(ctx context.Context, account string) ([]*model.CreditBatch, error)

	// RecomputeBalance compares the cached balance with the batch sum.
	RecomputeBalance(ctx context.Context, account string, now time.Time) (*model.BalanceCheck, error)
}
