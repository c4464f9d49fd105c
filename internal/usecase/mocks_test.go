package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	"github.com/wekeepgrowing/restoration-backend/pkg/messaging"
)

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) RecordPurchase(ctx context.Context, purchase *model.Purchase, now time.Time) (*model.PaymentTransaction, *model.AddResult, error) {
	args := m.Called(ctx, purchase, now)
	var txn *model.PaymentTransaction
	if v := args.Get(0); v != nil {
		txn = v.(*model.PaymentTransaction)
	}
	var result *model.AddResult
	if v := args.Get(1); v != nil {
		result = v.(*model.AddResult)
	}
	return txn, result, args.Error(2)
}

func (m *MockLedgerRepository) AddCredits(ctx context.Context, account string, credits int, sourceTransactionID string, now time.Time) (*model.AddResult, error) {
	args := m.Called(ctx, account, credits, sourceTransactionID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AddResult), args.Error(1)
}

func (m *MockLedgerRepository) DeductCredit(ctx context.Context, account string, now time.Time) (*model.DeductResult, error) {
	args := m.Called(ctx, account, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeductResult), args.Error(1)
}

func (m *MockLedgerRepository) ProcessRefund(ctx context.Context, req *model.RefundRequest, now time.Time) (*model.RefundResult, error) {
	args := m.Called(ctx, req, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundResult), args.Error(1)
}

func (m *MockLedgerRepository) AccountsWithExpiredCredits(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerRepository) ExpireAccount(ctx context.Context, account string, now time.Time) (int, int, error) {
	args := m.Called(ctx, account, now)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockLedgerRepository) GetBalance(ctx context.Context, account string) (*model.CreditBalance, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditBalance), args.Error(1)
}

func (m *MockLedgerRepository) ListBatches(ctx context.Context, account string) ([]*model.CreditBatch, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CreditBatch), args.Error(1)
}

func (m *MockLedgerRepository) RecomputeBalance(ctx context.Context, account string, now time.Time) (*model.BalanceCheck, error) {
	args := m.Called(ctx, account, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BalanceCheck), args.Error(1)
}

// MockQuotaRepository is a mock implementation of QuotaRepository
type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) Remaining(ctx context.Context, fingerprint string, limit int) (int, error) {
	args := m.Called(ctx, fingerprint, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockQuotaRepository) Reserve(ctx context.Context, fingerprint string, limit int, now time.Time, staleAfter time.Duration) (bool, error) {
	args := m.Called(ctx, fingerprint, limit, now, staleAfter)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuotaRepository) Increment(ctx context.Context, fingerprint string, now time.Time) error {
	args := m.Called(ctx, fingerprint, now)
	return args.Error(0)
}

func (m *MockQuotaRepository) Release(ctx context.Context, fingerprint string) error {
	args := m.Called(ctx, fingerprint)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.RestorationSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.RestorationSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RestorationSession), args.Error(1)
}

func (m *MockSessionRepository) Transition(ctx context.Context, session *model.RestorationSession, from model.SessionStatus) error {
	args := m.Called(ctx, session, from)
	return args.Error(0)
}

func (m *MockSessionRepository) SetFunding(ctx context.Context, session *model.RestorationSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) SetPreviews(ctx context.Context, id uuid.UUID, urls []string) error {
	args := m.Called(ctx, id, urls)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Insert(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, error) {
	args := m.Called(ctx, eventID, eventType, payload)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkSuccess(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, eventID string, cause error) error {
	args := m.Called(ctx, eventID, cause)
	return args.Error(0)
}

// MockInferenceProvider is a mock implementation of InferenceProvider
type MockInferenceProvider struct {
	mock.Mock
}

func (m *MockInferenceProvider) Restore(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

func (m *MockInferenceProvider) Fetch(ctx context.Context, resultURL string) (io.ReadCloser, error) {
	args := m.Called(ctx, resultURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	args := m.Called(ctx, key, contentType, body, size)
	return args.Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockObjectStorage) PresignGet(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockPreviewGenerator is a mock implementation of PreviewGenerator
type MockPreviewGenerator struct {
	mock.Mock
}

func (m *MockPreviewGenerator) Generate(src io.Reader) ([]provider.Preview, error) {
	args := m.Called(src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Preview), args.Error(1)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) VerifyWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

func (m *MockPaymentGateway) ParsePurchase(payload json.RawMessage) (*model.Purchase, bool, error) {
	args := m.Called(payload)
	var purchase *model.Purchase
	if v := args.Get(0); v != nil {
		purchase = v.(*model.Purchase)
	}
	return purchase, args.Bool(1), args.Error(2)
}

func (m *MockPaymentGateway) ParseRefund(payload json.RawMessage) (*model.RefundRequest, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundRequest), args.Error(1)
}

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetProviderName() string {
	return "mock"
}

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}
