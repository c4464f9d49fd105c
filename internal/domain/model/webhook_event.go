package model

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending WebhookStatus = "pending"
	WebhookStatusSuccess WebhookStatus = "success"
	WebhookStatusFailed  WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is the audit row for an inbound gateway event.
// The unique event_id is the only guard against processing an event twice.
type WebhookEvent struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string         `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	EventType    string         `gorm:"size:100;not null;index" json:"event_type"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status       WebhookStatus  `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"default:now()" json:"created_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
