package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

// BalanceReader exposes an account's cached balance and its batches.
type BalanceReader interface {
	GetBalance(ctx context.Context, account string) (*model.CreditBalance, error)
	ListBatches(ctx context.Context, account string) ([]*model.CreditBatch, error)
}

// CreditHandler handles credit balance requests
type CreditHandler struct {
	logger *zap.Logger
	ledger BalanceReader
	now    func() time.Time
}

// NewCreditHandler creates a new credit handler instance
func NewCreditHandler(logger *zap.Logger, ledger BalanceReader) *CreditHandler {
	return &CreditHandler{
		logger: logger,
		ledger: ledger,
		now:    time.Now,
	}
}

type BatchResponse struct {
	ID               string    `json:"id"`
	CreditsPurchased int       `json:"credits_purchased"`
	CreditsRemaining int       `json:"credits_remaining"`
	PurchaseDate     time.Time `json:"purchase_date"`
	ExpirationDate   time.Time `json:"expiration_date"`
	Expired          bool      `json:"expired"`
}

type CreditsResponse struct {
	Account          string          `json:"account"`
	AvailableCredits int             `json:"available_credits"`
	CreditsOwed      int             `json:"credits_owed"`
	Batches          []BatchResponse `json:"batches"`
}

// GetCredits handles GET /api/v1/credits
func (h *CreditHandler) GetCredits(c echo.Context) error {
	account, err := resolveAccount(c, c.QueryParam("fingerprint"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	balance, err := h.ledger.GetBalance(ctx, account)
	if err != nil {
		h.logger.Error("Failed to get credit balance",
			zap.String("account", account),
			zap.Error(err))
		return pkgerrors.Internal(pkgerrors.ErrInternal, "failed to retrieve credit balance", err)
	}

	batches, err := h.ledger.ListBatches(ctx, account)
	if err != nil {
		h.logger.Error("Failed to list credit batches",
			zap.String("account", account),
			zap.Error(err))
		return pkgerrors.Internal(pkgerrors.ErrInternal, "failed to retrieve credit batches", err)
	}

	now := h.now()
	resp := CreditsResponse{
		Account:          account,
		AvailableCredits: balance.AvailableCredits,
		CreditsOwed:      balance.CreditsOwed,
		Batches:          make([]BatchResponse, 0, len(batches)),
	}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, BatchResponse{
			ID:               b.ID.String(),
			CreditsPurchased: b.CreditsPurchased,
			CreditsRemaining: b.CreditsRemaining,
			PurchaseDate:     b.PurchaseDate,
			ExpirationDate:   b.ExpirationDate,
			Expired:          !b.ExpirationDate.After(now),
		})
	}

	return c.JSON(http.StatusOK, resp)
}
