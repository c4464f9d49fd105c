package repository

import (
	"context"
	"encoding/json"
)

// WebhookEventRepository stores the audit row of each inbound gateway event.
type WebhookEventRepository interface {
	// Insert stores a pending row. It returns false without error when a row
	// for eventID already exists, whatever its status.
	Insert(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error)
	MarkSuccess(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, cause error) error
}
