package http

import (
	"context"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
)

// CheckoutCreator opens hosted checkouts for credit packs.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, account, email, packID string) (*provider.CheckoutSession, error)
	Packs() config.PackCatalog
}

type CheckoutHandler struct {
	logger   *zap.Logger
	checkout CheckoutCreator
}

func NewCheckoutHandler(logger *zap.Logger, checkout CheckoutCreator) *CheckoutHandler {
	return &CheckoutHandler{
		logger:   logger,
		checkout: checkout,
	}
}

type CreateCheckoutRequest struct {
	PackID      string `json:"pack_id" validate:"required"`
	Fingerprint string `json:"fingerprint"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type CreateCheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type PackResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Credits     int    `json:"credits"`
}

// CreateCheckout handles POST /api/v1/checkout
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := resolveAccount(c, req.Fingerprint)
	if err != nil {
		return err
	}
	email := userEmail(c)
	if email == "" {
		email = req.Email
	}

	h.logger.Info("Creating checkout",
		zap.String("pack_id", req.PackID),
		zap.String("account", account))

	session, err := h.checkout.CreateCheckout(c.Request().Context(), account, email, req.PackID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateCheckoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}

// ListPacks handles GET /api/v1/packs
func (h *CheckoutHandler) ListPacks(c echo.Context) error {
	catalog := h.checkout.Packs()
	packs := make([]PackResponse, 0, len(catalog))
	for _, pack := range catalog {
		packs = append(packs, PackResponse{
			ID:          pack.ID,
			DisplayName: pack.DisplayName,
			Credits:     pack.Credits,
		})
	}
	sort.Slice(packs, func(i, j int) bool {
		if packs[i].Credits != packs[j].Credits {
			return packs[i].Credits < packs[j].Credits
		}
		return packs[i].ID < packs[j].ID
	})

	return c.JSON(http.StatusOK, echo.Map{"packs": packs})
}
