package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
)

// Metadata keys written on checkout sessions and read back from webhooks.
const (
	MetadataAccountID = "account_id"
	MetadataCredits   = "credits"
	MetadataPackID    = "pack_id"
)

// currencies charged in whole units
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// StripeProvider implements the PaymentGateway interface for Stripe
type StripeProvider struct {
	webhookSecret string
	clientURL     string
	logger        *zap.Logger
	newSession    func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(secretKey, webhookSecret, clientURL string, logger *zap.Logger) *StripeProvider {
	sessions := &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return &StripeProvider{
		webhookSecret: webhookSecret,
		clientURL:     strings.TrimRight(clientURL, "/"),
		logger:        logger,
		newSession:    sessions.New,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return "stripe"
}

// VerifyWebhook checks the Stripe-Signature header against the endpoint secret
func (s *StripeProvider) VerifyWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "INVALID_SIGNATURE",
			Message: "webhook signature verification failed",
			Details: err.Error(),
		}
	}

	s.logger.Debug("Webhook event verified",
		zap.String("type", string(event.Type)),
		zap.String("id", event.ID),
		zap.Time("created", time.Unix(event.Created, 0)))

	return &provider.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   event.Data.Raw,
		CreatedAt: time.Unix(event.Created, 0),
	}, nil
}

// ParsePurchase reads a checkout session. Sessions that are not paid yet return ok=false.
func (s *StripeProvider) ParsePurchase(payload json.RawMessage) (*model.Purchase, bool, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, false, fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logger.Info("Checkout session not paid",
			zap.String("session_id", session.ID),
			zap.String("payment_status", string(session.PaymentStatus)))
		return nil, false, nil
	}

	account := session.Metadata[MetadataAccountID]
	if account == "" {
		account = session.ClientReferenceID
	}
	if account == "" {
		return nil, false, fmt.Errorf("checkout session %s has no account reference", session.ID)
	}

	credits, err := strconv.Atoi(session.Metadata[MetadataCredits])
	if err != nil || credits <= 0 {
		return nil, false, fmt.Errorf("checkout session %s has invalid credits metadata %q", session.ID, session.Metadata[MetadataCredits])
	}

	paymentID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		paymentID = session.PaymentIntent.ID
	}

	currency := strings.ToLower(string(session.Currency))
	metadata := model.JSONB{}
	for k, v := range session.Metadata {
		metadata[k] = v
	}
	if session.CustomerEmail != "" {
		metadata["customer_email"] = session.CustomerEmail
	}

	return &model.Purchase{
		Account:          account,
		GatewaySessionID: session.ID,
		GatewayPaymentID: paymentID,
		Amount:           fromMinorUnits(session.AmountTotal, currency),
		Currency:         currency,
		Credits:          credits,
		Metadata:         metadata,
	}, true, nil
}

// ParseRefund reads a refunded charge. The newest refund on the charge names
// the refund; charges without an expanded refund list fall back to the
// charge id and cumulative refunded amount.
func (s *StripeProvider) ParseRefund(payload json.RawMessage) (*model.RefundRequest, error) {
	var charge stripe.Charge
	if err := json.Unmarshal(payload, &charge); err != nil {
		return nil, fmt.Errorf("failed to parse charge: %w", err)
	}

	paymentID := charge.ID
	if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
		paymentID = charge.PaymentIntent.ID
	}

	refundID := fmt.Sprintf("%s:%d", charge.ID, charge.AmountRefunded)
	if charge.Refunds != nil && len(charge.Refunds.Data) > 0 && charge.Refunds.Data[0].ID != "" {
		refundID = charge.Refunds.Data[0].ID
	}

	currency := strings.ToLower(string(charge.Currency))
	return &model.RefundRequest{
		GatewayPaymentID: paymentID,
		GatewayRefundID:  refundID,
		AmountRefunded:   fromMinorUnits(charge.AmountRefunded, currency),
		Currency:         currency,
	}, nil
}

// CreateCheckout opens a one-time payment checkout for a credit pack
func (s *StripeProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.clientURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.clientURL + "/checkout/cancel"),
		ClientReferenceID: stripe.String(req.Account),
		Metadata:          req.Metadata,
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	session, err := s.newSession(params)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "CHECKOUT_FAILED",
			Message: "failed to create checkout session",
			Details: err.Error(),
		}
	}

	s.logger.Info("Stripe checkout session created",
		zap.String("session_id", session.ID),
		zap.String("price_id", req.PriceID))

	return &provider.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}
