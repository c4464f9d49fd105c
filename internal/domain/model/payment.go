package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment transaction
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusCompleted
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentTransaction is created once per completed checkout.
type PaymentTransaction struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Account          string          `gorm:"size:255;not null;index" json:"account"`
	GatewaySessionID string          `gorm:"size:255;not null;uniqueIndex" json:"gateway_session_id"`
	GatewayPaymentID string          `gorm:"size:255;index" json:"gateway_payment_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;not null" json:"currency"`
	CreditsPurchased int             `gorm:"not null" json:"credits_purchased"`
	Status           PaymentStatus   `gorm:"size:20;not null;default:'completed'" json:"status"`
	Metadata         JSONB           `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt        time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// Refund records one gateway refund against a transaction.
type Refund struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID   int64           `gorm:"not null;index" json:"transaction_id"`
	GatewayRefundID string          `gorm:"size:255;not null;uniqueIndex" json:"gateway_refund_id"`
	AmountRefunded  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_refunded"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	CreditsDeducted int             `gorm:"not null;default:0" json:"credits_deducted"`
	CreatedAt       time.Time       `gorm:"default:now()" json:"created_at"`

	Transaction *PaymentTransaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
}

// TableName specifies the table name for GORM
func (Refund) TableName() string {
	return "refunds"
}

// Purchase carries a completed checkout into the ledger.
type Purchase struct {
	Account          string
	GatewaySessionID string
	GatewayPaymentID string
	Amount           decimal.Decimal
	Currency         string
	Credits          int
	Metadata         JSONB
}

// RefundRequest carries a gateway refund into the ledger.
type RefundRequest struct {
	GatewayPaymentID string
	GatewayRefundID  string
	AmountRefunded   decimal.Decimal
	Currency         string
}
