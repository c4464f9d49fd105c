package usecase

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// CheckoutService opens hosted checkouts for credit packs.
type CheckoutService struct {
	gateway provider.PaymentGateway
	packs   config.PackCatalog
	logger  *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(gateway provider.PaymentGateway, packs config.PackCatalog, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		packs:   packs,
		logger:  logger,
	}
}

// CreateCheckout starts a checkout for packID. The account is carried in the
// session metadata so the completion webhook can credit it.
func (s *CheckoutService) CreateCheckout(ctx context.Context, account, email, packID string) (*provider.CheckoutSession, error) {
	if account == "" {
		return nil, pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required")
	}
	pack, ok := s.packs.Get(packID)
	if !ok {
		return nil, pkgerrors.Validation(pkgerrors.ErrInvalidArgument, "unknown credit pack")
	}

	session, err := s.gateway.CreateCheckout(ctx, &provider.CheckoutRequest{
		Account: account,
		PackID:  pack.ID,
		PriceID: pack.StripePriceID,
		Credits: pack.Credits,
		Email:   email,
		Metadata: map[string]string{
			"account_id": account,
			"credits":    strconv.Itoa(pack.Credits),
			"pack_id":    pack.ID,
		},
	})
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("account", account),
			zap.String("pack_id", pack.ID),
			zap.String("provider", s.gateway.GetProviderName()),
			zap.Error(err))
		return nil, pkgerrors.Unavailable(pkgerrors.ErrPaymentUnavailable, "payment provider is unavailable", err)
	}

	s.logger.Info("Checkout session created",
		zap.String("account", account),
		zap.String("pack_id", pack.ID),
		zap.String("session_id", session.ID))
	return session, nil
}

// Packs returns the sellable credit packs.
func (s *CheckoutService) Packs() config.PackCatalog {
	return s.packs
}
