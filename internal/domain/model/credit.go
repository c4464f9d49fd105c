package model

import (
	"time"

	"github.com/google/uuid"
)

// BatchLifetimeYears is how long purchased credits stay spendable.
const BatchLifetimeYears = 1

// ExpirationFor returns the expiration date of a batch purchased at t.
func ExpirationFor(t time.Time) time.Time {
	return t.AddDate(BatchLifetimeYears, 0, 0)
}

// CreditBatch is a purchased lot of credits consumed oldest first.
// Only CreditsRemaining changes after creation.
type CreditBatch struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Account             string    `gorm:"size:255;not null;index:idx_credit_batches_account_purchase,priority:1" json:"account"`
	CreditsPurchased    int       `gorm:"not null;check:chk_credit_batches_purchased,credits_purchased > 0" json:"credits_purchased"`
	CreditsRemaining    int       `gorm:"not null;check:chk_credit_batches_remaining,credits_remaining >= 0 AND credits_remaining <= credits_purchased" json:"credits_remaining"`
	PurchaseDate        time.Time `gorm:"not null;index:idx_credit_batches_account_purchase,priority:2" json:"purchase_date"`
	ExpirationDate      time.Time `gorm:"not null;index" json:"expiration_date"`
	SourceTransactionID string    `gorm:"size:255;not null;uniqueIndex" json:"source_transaction_id"`
	CreatedAt           time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt           time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CreditBatch) TableName() string {
	return "credit_batches"
}

// IsSpendable reports whether the batch can fund a deduction at now.
func (b *CreditBatch) IsSpendable(now time.Time) bool {
	return b.CreditsRemaining > 0 && b.ExpirationDate.After(now)
}

// CreditBalance is the cached per-account aggregate.
// AvailableCredits equals the unexpired remaining credits minus CreditsOwed.
// CreditsOwed is refund debt not yet covered by a purchase.
type CreditBalance struct {
	Account          string    `gorm:"size:255;primaryKey" json:"account"`
	AvailableCredits int       `gorm:"not null;default:0" json:"available_credits"`
	CreditsOwed      int       `gorm:"not null;default:0;check:chk_credit_balances_owed,credits_owed >= 0" json:"credits_owed"`
	UpdatedAt        time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CreditBalance) TableName() string {
	return "credit_balances"
}

// AddResult is returned by the ledger when credits are granted.
type AddResult struct {
	NewBalance int
	BatchID    uuid.UUID
	// AlreadyApplied is set when the source transaction had been credited before.
	AlreadyApplied bool
	// DebtSettled is how much of the new batch went to outstanding refund debt.
	DebtSettled int
}

// DeductResult is returned by a single-credit deduction.
type DeductResult struct {
	Success          bool
	BatchID          uuid.UUID
	RemainingInBatch int
	NewBalance       int
}

// RefundResult is returned by refund processing.
type RefundResult struct {
	NewBalance      int
	CreditsDeducted int
	Duplicate       bool
}

// ExpireResult summarizes an expiration sweep.
type ExpireResult struct {
	AccountsAffected    int
	BatchesExpired      int
	TotalCreditsExpired int
}

// BalanceCheck compares the cached balance with one recomputed from batches.
type BalanceCheck struct {
	Account    string
	Cached     int
	Recomputed int
	Owed       int
}

// Consistent reports whether the cached aggregate matches the batches.
func (c BalanceCheck) Consistent() bool {
	return c.Cached == c.Recomputed
}
