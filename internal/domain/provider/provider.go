package provider

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// Event types the idempotency guard dispatches on.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventChargeRefunded         = "charge.refunded"
)

// PaymentGateway is the payment provider seen by the rest of the service.
type PaymentGateway interface {
	// VerifyWebhook checks the signature and returns the parsed envelope.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)

	// ParsePurchase extracts a completed purchase from a checkout event payload.
	// ok is false for sessions that are not paid yet.
	ParsePurchase(payload json.RawMessage) (purchase *model.Purchase, ok bool, err error)

	// ParseRefund extracts a refund from a refund event payload.
	ParseRefund(payload json.RawMessage) (*model.RefundRequest, error)

	// CreateCheckout opens a hosted checkout for a credit pack.
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)

	GetProviderName() string
}

// WebhookEvent is a verified gateway event.
type WebhookEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CheckoutRequest describes a credit pack purchase.
type CheckoutRequest struct {
	Account  string
	PackID   string
	PriceID  string
	Credits  int
	Email    string
	Metadata map[string]string
}

// CheckoutSession is the hosted checkout handed back to the client.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// InferenceProvider runs the restoration model on an uploaded image.
type InferenceProvider interface {
	// Restore returns the URL of the restored image.
	Restore(ctx context.Context, imageURL string) (string, error)

	// Fetch downloads a result produced by Restore.
	Fetch(ctx context.Context, resultURL string) (io.ReadCloser, error)
}

// ObjectStorage stores uploaded originals and generated previews.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string) (string, error)
}

// PreviewGenerator renders downscaled previews of a restored image.
type PreviewGenerator interface {
	// Generate returns one encoded preview per configured width.
	Generate(src io.Reader) ([]Preview, error)
}

// Preview is one encoded preview image.
type Preview struct {
	Width       int
	ContentType string
	Data        []byte
}

// ProviderError is returned by provider adapters for upstream failures.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
