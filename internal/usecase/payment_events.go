package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
)

// RegisterPaymentHandlers wires the ledger side effects of gateway events into the guard.
// Delayed payment methods complete the checkout unpaid and are credited on the
// async success event; the purchase is keyed by checkout session either way.
func RegisterPaymentHandlers(guard *WebhookGuard, ledger *CreditLedger, gateway provider.PaymentGateway, logger *zap.Logger) {
	recordPurchase := func(ctx context.Context, payload json.RawMessage) error {
		purchase, ok, err := gateway.ParsePurchase(payload)
		if err != nil {
			return fmt.Errorf("parse checkout event: %w", err)
		}
		if !ok {
			logger.Info("Checkout session not paid yet, no credits granted")
			return nil
		}
		_, _, err = ledger.RecordPurchase(ctx, purchase)
		return err
	}
	guard.Register(provider.EventCheckoutCompleted, recordPurchase)
	guard.Register(provider.EventCheckoutAsyncSucceeded, recordPurchase)

	guard.Register(provider.EventChargeRefunded, func(ctx context.Context, payload json.RawMessage) error {
		refund, err := gateway.ParseRefund(payload)
		if err != nil {
			return fmt.Errorf("parse refund event: %w", err)
		}
		_, err = ledger.ProcessRefund(ctx, refund)
		return err
	})
}
