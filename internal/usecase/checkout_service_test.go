package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/config"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

func testPacks() config.PackCatalog {
	return config.PackCatalog{
		"starter": {ID: "starter", DisplayName: "10 credits", StripePriceID: "price_starter", Credits: 10},
	}
}

func TestCheckoutService_CreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("carries account and credits in metadata", func(t *testing.T) {
		gateway := new(MockPaymentGateway)
		service := usecase.NewCheckoutService(gateway, testPacks(), zap.NewNop())

		gateway.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(req *provider.CheckoutRequest) bool {
			return req.Account == "user-1" &&
				req.PriceID == "price_starter" &&
				req.Metadata["account_id"] == "user-1" &&
				req.Metadata["credits"] == "10" &&
				req.Metadata["pack_id"] == "starter"
		})).Return(&provider.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil)

		session, err := service.CreateCheckout(ctx, "user-1", "", "starter")
		require.NoError(t, err)
		assert.Equal(t, "cs_1", session.ID)
		gateway.AssertExpectations(t)
	})

	t.Run("unknown pack", func(t *testing.T) {
		gateway := new(MockPaymentGateway)
		service := usecase.NewCheckoutService(gateway, testPacks(), zap.NewNop())

		_, err := service.CreateCheckout(ctx, "user-1", "", "mega")
		assert.Equal(t, pkgerrors.ErrInvalidArgument, errorCode(t, err))
		gateway.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure", func(t *testing.T) {
		gateway := new(MockPaymentGateway)
		service := usecase.NewCheckoutService(gateway, testPacks(), zap.NewNop())
		gateway.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, errors.New("stripe down"))

		_, err := service.CreateCheckout(ctx, "user-1", "", "starter")
		assert.Equal(t, pkgerrors.ErrPaymentUnavailable, errorCode(t, err))
	})
}
