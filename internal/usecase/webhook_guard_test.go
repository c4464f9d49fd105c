package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/restoration-backend/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
)

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *pkgerrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code()
}

func TestWebhookGuard_Ingest(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	payload := json.RawMessage(`{"id":"cs_test_1"}`)

	t.Run("duplicate deliveries run the side effect once", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		calls := 0
		guard.Register(provider.EventCheckoutCompleted, func(ctx context.Context, p json.RawMessage) error {
			calls++
			return nil
		})

		repo.On("Insert", mock.Anything, "evt_1", provider.EventCheckoutCompleted, payload).Return(true, nil).Once()
		repo.On("Insert", mock.Anything, "evt_1", provider.EventCheckoutCompleted, payload).Return(false, nil).Times(4)
		repo.On("MarkSuccess", mock.Anything, "evt_1").Return(nil).Once()

		first, err := guard.Ingest(ctx, "evt_1", provider.EventCheckoutCompleted, payload)
		require.NoError(t, err)
		assert.False(t, first.Duplicate)
		assert.True(t, first.Handled)

		for i := 0; i < 4; i++ {
			result, err := guard.Ingest(ctx, "evt_1", provider.EventCheckoutCompleted, payload)
			require.NoError(t, err)
			assert.True(t, result.Duplicate)
		}

		assert.Equal(t, 1, calls)
		repo.AssertExpectations(t)
	})

	t.Run("audit insert failure never runs the side effect", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		called := false
		guard.Register(provider.EventCheckoutCompleted, func(ctx context.Context, p json.RawMessage) error {
			called = true
			return nil
		})
		repo.On("Insert", mock.Anything, "evt_2", provider.EventCheckoutCompleted, payload).
			Return(false, errors.New("connection refused"))

		result, err := guard.Ingest(ctx, "evt_2", provider.EventCheckoutCompleted, payload)
		assert.Nil(t, result)
		assert.Equal(t, pkgerrors.ErrAuditLogFailed, errorCode(t, err))
		assert.False(t, called)
		repo.AssertNotCalled(t, "MarkSuccess", mock.Anything, mock.Anything)
	})

	t.Run("handler failure marks the event failed", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		handlerErr := errors.New("transaction not found")
		guard.Register(provider.EventChargeRefunded, func(ctx context.Context, p json.RawMessage) error {
			return handlerErr
		})
		repo.On("Insert", mock.Anything, "evt_3", provider.EventChargeRefunded, payload).Return(true, nil)
		repo.On("MarkFailed", mock.Anything, "evt_3", handlerErr).Return(nil)

		result, err := guard.Ingest(ctx, "evt_3", provider.EventChargeRefunded, payload)
		assert.Nil(t, result)
		assert.Equal(t, pkgerrors.ErrWebhookProcessingFailed, errorCode(t, err))
		assert.ErrorIs(t, err, handlerErr)
		repo.AssertExpectations(t)
	})

	t.Run("unhandled event type is recorded and acknowledged", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		repo.On("Insert", mock.Anything, "evt_4", "customer.created", payload).Return(true, nil)
		repo.On("MarkSuccess", mock.Anything, "evt_4").Return(nil)

		result, err := guard.Ingest(ctx, "evt_4", "customer.created", payload)
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.False(t, result.Handled)
		repo.AssertExpectations(t)
	})

	t.Run("failure to mark success is not an error", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())
		guard.Register("customer.created", func(ctx context.Context, p json.RawMessage) error { return nil })

		repo.On("Insert", mock.Anything, "evt_5", "customer.created", payload).Return(true, nil)
		repo.On("MarkSuccess", mock.Anything, "evt_5").Return(errors.New("timeout"))

		result, err := guard.Ingest(ctx, "evt_5", "customer.created", payload)
		require.NoError(t, err)
		assert.True(t, result.Handled)
	})

	t.Run("caller hanging up does not abort a recorded event", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		grants := 0
		guard.Register(provider.EventCheckoutCompleted, func(ctx context.Context, p json.RawMessage) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			grants++
			return nil
		})
		repo.On("Insert", mock.Anything, "evt_6", provider.EventCheckoutCompleted, payload).Return(true, nil).Once()
		repo.On("Insert", mock.Anything, "evt_6", provider.EventCheckoutCompleted, payload).Return(false, nil).Once()
		repo.On("MarkSuccess", mock.Anything, "evt_6").Return(nil).Once()

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := guard.Ingest(canceled, "evt_6", provider.EventCheckoutCompleted, payload)
		require.NoError(t, err)
		assert.True(t, result.Handled)

		redelivery, err := guard.Ingest(ctx, "evt_6", provider.EventCheckoutCompleted, payload)
		require.NoError(t, err)
		assert.True(t, redelivery.Duplicate)

		assert.Equal(t, 1, grants)
		repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("missing event id", func(t *testing.T) {
		repo := new(MockWebhookEventRepository)
		guard := usecase.NewWebhookGuard(repo, logger, metrics.NewNop())

		_, err := guard.Ingest(ctx, "", "customer.created", payload)
		assert.Equal(t, pkgerrors.ErrInvalidArgument, errorCode(t, err))
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegisterPaymentHandlers(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	payload := json.RawMessage(`{}`)

	newGuard := func() (*usecase.WebhookGuard, *MockWebhookEventRepository, *MockLedgerRepository, *MockPaymentGateway) {
		events := new(MockWebhookEventRepository)
		ledgerRepo := new(MockLedgerRepository)
		gateway := new(MockPaymentGateway)
		m := metrics.NewNop()
		guard := usecase.NewWebhookGuard(events, logger, m)
		usecase.RegisterPaymentHandlers(guard, usecase.NewCreditLedger(ledgerRepo, logger, m), gateway, logger)
		return guard, events, ledgerRepo, gateway
	}

	t.Run("paid checkout grants credits", func(t *testing.T) {
		guard, events, ledgerRepo, gateway := newGuard()
		purchase := &model.Purchase{
			Account:          "user-1",
			GatewaySessionID: "cs_1",
			GatewayPaymentID: "pi_1",
			Amount:           decimal.NewFromInt(10),
			Currency:         "usd",
			Credits:          10,
		}

		events.On("Insert", mock.Anything, "evt_c", provider.EventCheckoutCompleted, payload).Return(true, nil)
		events.On("MarkSuccess", mock.Anything, "evt_c").Return(nil)
		gateway.On("ParsePurchase", payload).Return(purchase, true, nil)
		ledgerRepo.On("RecordPurchase", mock.Anything, purchase, mock.Anything).
			Return(&model.PaymentTransaction{}, &model.AddResult{NewBalance: 10}, nil)

		result, err := guard.Ingest(ctx, "evt_c", provider.EventCheckoutCompleted, payload)
		require.NoError(t, err)
		assert.True(t, result.Handled)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("unpaid checkout grants nothing", func(t *testing.T) {
		guard, events, ledgerRepo, gateway := newGuard()

		events.On("Insert", mock.Anything, "evt_u", provider.EventCheckoutCompleted, payload).Return(true, nil)
		events.On("MarkSuccess", mock.Anything, "evt_u").Return(nil)
		gateway.On("ParsePurchase", payload).Return(nil, false, nil)

		_, err := guard.Ingest(ctx, "evt_u", provider.EventCheckoutCompleted, payload)
		require.NoError(t, err)
		ledgerRepo.AssertNotCalled(t, "RecordPurchase", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("async payment success grants credits", func(t *testing.T) {
		guard, events, ledgerRepo, gateway := newGuard()
		purchase := &model.Purchase{
			Account:          "fp-0123456789abcdefghij",
			GatewaySessionID: "cs_2",
			GatewayPaymentID: "pi_2",
			Amount:           decimal.NewFromInt(5),
			Currency:         "eur",
			Credits:          5,
		}

		events.On("Insert", mock.Anything, "evt_a", provider.EventCheckoutAsyncSucceeded, payload).Return(true, nil)
		events.On("MarkSuccess", mock.Anything, "evt_a").Return(nil)
		gateway.On("ParsePurchase", payload).Return(purchase, true, nil)
		ledgerRepo.On("RecordPurchase", mock.Anything, purchase, mock.Anything).
			Return(&model.PaymentTransaction{}, &model.AddResult{NewBalance: 5}, nil)

		result, err := guard.Ingest(ctx, "evt_a", provider.EventCheckoutAsyncSucceeded, payload)
		require.NoError(t, err)
		assert.True(t, result.Handled)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("refund reclaims credits", func(t *testing.T) {
		guard, events, ledgerRepo, gateway := newGuard()
		refund := &model.RefundRequest{
			GatewayPaymentID: "pi_1",
			GatewayRefundID:  "re_1",
			AmountRefunded:   decimal.NewFromInt(10),
			Currency:         "usd",
		}

		events.On("Insert", mock.Anything, "evt_r", provider.EventChargeRefunded, payload).Return(true, nil)
		events.On("MarkSuccess", mock.Anything, "evt_r").Return(nil)
		gateway.On("ParseRefund", payload).Return(refund, nil)
		ledgerRepo.On("ProcessRefund", mock.Anything, refund, mock.Anything).
			Return(&model.RefundResult{NewBalance: -10, CreditsDeducted: 10}, nil)

		_, err := guard.Ingest(ctx, "evt_r", provider.EventChargeRefunded, payload)
		require.NoError(t, err)
		ledgerRepo.AssertExpectations(t)
	})
}
