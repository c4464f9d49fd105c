package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
)

// SessionStatus represents the lifecycle state of a restoration session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusComplete   SessionStatus = "complete"
	SessionStatusFailed     SessionStatus = "failed"
)

// MaxSessionRetries is the number of automatic retries after a failed attempt.
const MaxSessionRetries = 1

// Scan implements sql.Scanner interface
func (s *SessionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SessionStatus(v)
	case []byte:
		*s = SessionStatus(v)
	default:
		*s = SessionStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SessionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusComplete || s == SessionStatusFailed
}

// FundingSource records who pays for a restoration.
type FundingSource string

const (
	FundingNone     FundingSource = ""
	FundingCredit   FundingSource = "credit"
	FundingFreeTier FundingSource = "free_tier"
)

// RestorationSession tracks one restore request.
type RestorationSession struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Account       string        `gorm:"size:255;not null;index" json:"account"`
	OriginalURL   string        `gorm:"not null" json:"original_url"`
	ResultURL     *string       `json:"result_url,omitempty"`
	PreviewURLs   StringList    `gorm:"type:jsonb;default:'[]'" json:"preview_urls"`
	Status        SessionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RetryCount    int           `gorm:"not null;default:0;check:chk_restoration_sessions_retry_count,retry_count >= 0 AND retry_count <= 1" json:"retry_count"`
	FundingSource FundingSource `gorm:"size:20" json:"funding_source,omitempty"`
	CreditBatchID *uuid.UUID    `gorm:"type:uuid" json:"credit_batch_id,omitempty"`
	LastError     *string       `json:"last_error,omitempty"`
	CreatedAt     time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"default:now()" json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (RestorationSession) TableName() string {
	return "restoration_sessions"
}

// NewRestorationSession creates a pending session for account.
func NewRestorationSession(account, originalURL string) *RestorationSession {
	return &RestorationSession{
		ID:          uuid.New(),
		Account:     account,
		OriginalURL: originalURL,
		Status:      SessionStatusPending,
	}
}

// Start moves a pending session to processing.
func (s *RestorationSession) Start() error {
	if s.Status != SessionStatusPending {
		return domainerrors.NewInvalidTransitionError(string(s.Status), string(SessionStatusProcessing))
	}
	s.Status = SessionStatusProcessing
	return nil
}

// Complete moves a processing session to complete.
func (s *RestorationSession) Complete(resultURL string, at time.Time) error {
	if s.Status != SessionStatusProcessing {
		return domainerrors.NewInvalidTransitionError(string(s.Status), string(SessionStatusComplete))
	}
	s.Status = SessionStatusComplete
	s.ResultURL = &resultURL
	s.LastError = nil
	s.CompletedAt = &at
	return nil
}

// Fail records a failed attempt. The first failure sends the session back to
// pending with RetryCount 1 and returns true; any later failure is terminal.
func (s *RestorationSession) Fail(reason string, at time.Time) (bool, error) {
	if s.Status != SessionStatusProcessing {
		return false, domainerrors.NewInvalidTransitionError(string(s.Status), string(SessionStatusFailed))
	}
	s.LastError = &reason
	if s.RetryCount < MaxSessionRetries {
		s.RetryCount++
		s.Status = SessionStatusPending
		return true, nil
	}
	s.Status = SessionStatusFailed
	s.CompletedAt = &at
	return false, nil
}
