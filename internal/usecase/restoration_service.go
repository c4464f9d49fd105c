package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/restoration-backend/internal/domain/errors"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
	domainRepo "github.com/wekeepgrowing/restoration-backend/internal/domain/repository"
	"github.com/wekeepgrowing/restoration-backend/internal/infrastructure/metrics"
	pkgerrors "github.com/wekeepgrowing/restoration-backend/pkg/errors"
	"github.com/wekeepgrowing/restoration-backend/pkg/messaging"
)

// Session lifecycle events published after a terminal transition.
const (
	EventRestorationCompleted = "restoration.completed"
	EventRestorationFailed    = "restoration.failed"
)

// RestorationRequest is one uploaded image to restore.
type RestorationRequest struct {
	// UserID is set for authenticated callers and becomes the ledger account.
	UserID      string
	Fingerprint string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (r *RestorationRequest) account() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.Fingerprint
}

// RestorationOptions tunes the inference attempt loop.
type RestorationOptions struct {
	AttemptTimeout time.Duration
	RetryBackoff   time.Duration
}

// RestorationService funds and runs restoration sessions.
type RestorationService struct {
	sessions  domainRepo.SessionRepository
	ledger    *CreditLedger
	quota     *QuotaTracker
	inference provider.InferenceProvider
	storage   provider.ObjectStorage
	previews  provider.PreviewGenerator
	publisher messaging.Publisher
	opts      RestorationOptions
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRestorationService creates a new restoration service. previews may be nil.
func NewRestorationService(
	sessions domainRepo.SessionRepository,
	ledger *CreditLedger,
	quota *QuotaTracker,
	inference provider.InferenceProvider,
	storage provider.ObjectStorage,
	previews provider.PreviewGenerator,
	publisher messaging.Publisher,
	opts RestorationOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *RestorationService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &RestorationService{
		sessions:  sessions,
		ledger:    ledger,
		quota:     quota,
		inference: inference,
		storage:   storage,
		previews:  previews,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Restore stores the original, funds the session and runs inference with one retry.
// The returned session is non-nil whenever it was created, including on errors.
func (s *RestorationService) Restore(ctx context.Context, req *RestorationRequest) (*model.RestorationSession, error) {
	if req.UserID == "" && req.Fingerprint == "" {
		return nil, pkgerrors.Validation(pkgerrors.ErrMissingIdentifier, "fingerprint is required")
	}
	if req.Fingerprint != "" {
		if err := validateFingerprint(req.Fingerprint); err != nil {
			return nil, err
		}
	}
	if req.Body == nil || req.Size <= 0 {
		return nil, pkgerrors.Validation(pkgerrors.ErrInvalidFile, "image file is required")
	}

	originalURL, err := s.storeOriginal(ctx, req)
	if err != nil {
		return nil, err
	}

	session := model.NewRestorationSession(req.account(), originalURL)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, pkgerrors.Internal(pkgerrors.ErrInternal, "failed to create restoration session", err)
	}

	log := s.logger.With(
		zap.String("session_id", session.ID.String()),
		zap.String("account", session.Account))

	if err := s.fund(ctx, session, req); err != nil {
		log.Info("Restoration not funded", zap.Error(err))
		return session, err
	}
	if err := s.sessions.SetFunding(ctx, session); err != nil {
		s.releaseFunding(context.WithoutCancel(ctx), session, req.Fingerprint)
		return session, pkgerrors.Internal(pkgerrors.ErrInternal, "failed to record session funding", err)
	}

	// a funded session runs to a terminal state even if the caller goes away
	runCtx := context.WithoutCancel(ctx)
	if err := s.run(runCtx, session, log); err != nil {
		s.releaseFunding(runCtx, session, req.Fingerprint)
		s.metrics.Restoration(string(model.SessionStatusFailed), string(session.FundingSource))
		s.publish(runCtx, EventRestorationFailed, session, log)
		if session.Status != model.SessionStatusFailed {
			return session, pkgerrors.Internal(pkgerrors.ErrInternal, "restoration session could not be updated", err)
		}
		return session, pkgerrors.Unavailable(pkgerrors.ErrInferenceUnavailable, "restoration failed, please try again later", err)
	}

	if session.FundingSource == model.FundingFreeTier {
		if err := s.quota.IncrementQuota(runCtx, req.Fingerprint); err != nil {
			log.Error("Free restore completed but not counted", zap.Error(err))
		}
	}

	s.attachPreviews(runCtx, session, log)
	s.metrics.Restoration(string(model.SessionStatusComplete), string(session.FundingSource))
	s.publish(runCtx, EventRestorationCompleted, session, log)

	log.Info("Restoration completed",
		zap.String("funding", string(session.FundingSource)),
		zap.Int("retry_count", session.RetryCount))
	return session, nil
}

// GetSession returns a session by id
func (s *RestorationService) GetSession(ctx context.Context, id uuid.UUID) (*model.RestorationSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return nil, pkgerrors.NotFound("restoration session not found")
		}
		return nil, pkgerrors.Internal(pkgerrors.ErrInternal, "failed to load restoration session", err)
	}
	return session, nil
}

func (s *RestorationService) storeOriginal(ctx context.Context, req *RestorationRequest) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", pkgerrors.Internal(pkgerrors.ErrInternal, "failed to generate upload key", err)
	}
	key := "originals/" + id + strings.ToLower(path.Ext(req.Filename))

	if err := s.storage.Put(ctx, key, req.ContentType, req.Body, req.Size); err != nil {
		return "", pkgerrors.Unavailable(pkgerrors.ErrStorageUnavailable, "failed to store uploaded image", err)
	}
	url, err := s.storage.PresignGet(ctx, key)
	if err != nil {
		return "", pkgerrors.Unavailable(pkgerrors.ErrStorageUnavailable, "failed to store uploaded image", err)
	}
	return url, nil
}

// fund pays for the session with a credit when the account has one,
// otherwise with the fingerprint's free restore.
func (s *RestorationService) fund(ctx context.Context, session *model.RestorationSession, req *RestorationRequest) error {
	balance, err := s.ledger.GetBalance(ctx, session.Account)
	if err != nil {
		return pkgerrors.Internal(pkgerrors.ErrInternal, "failed to read credit balance", err)
	}

	if balance.AvailableCredits > 0 {
		result, err := s.ledger.DeductCredit(ctx, session.Account)
		if err != nil {
			return pkgerrors.Internal(pkgerrors.ErrInternal, "failed to deduct credit", err)
		}
		if result.Success {
			batchID := result.BatchID
			session.FundingSource = model.FundingCredit
			session.CreditBatchID = &batchID
			return nil
		}
	}

	if req.Fingerprint == "" {
		return pkgerrors.NewAppError(pkgerrors.KindFunds, pkgerrors.ErrInsufficientCredits,
			"no credits available, please purchase a credit pack", nil)
	}

	reserved, err := s.quota.ReserveQuota(ctx, req.Fingerprint)
	if err != nil {
		return err
	}
	if !reserved {
		return pkgerrors.NewAppError(pkgerrors.KindQuota, pkgerrors.ErrQuotaExceeded,
			"free restore already used, please purchase credits", nil)
	}
	session.FundingSource = model.FundingFreeTier
	return nil
}

// releaseFunding gives back a free-tier reservation. Spent credits stay spent.
func (s *RestorationService) releaseFunding(ctx context.Context, session *model.RestorationSession, fingerprint string) {
	if session.FundingSource != model.FundingFreeTier {
		return
	}
	if err := s.quota.ReleaseQuota(ctx, fingerprint); err != nil {
		s.logger.Warn("Quota reservation left to go stale",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}
}

// run drives the session through processing until it is complete or failed.
func (s *RestorationService) run(ctx context.Context, session *model.RestorationSession, log *zap.Logger) error {
	for {
		from := session.Status
		if err := session.Start(); err != nil {
			return err
		}
		if err := s.sessions.Transition(ctx, session, from); err != nil {
			return err
		}

		resultURL, err := s.attempt(ctx, session)
		if err == nil {
			if err := session.Complete(resultURL, s.now()); err != nil {
				return err
			}
			return s.sessions.Transition(ctx, session, model.SessionStatusProcessing)
		}

		retry, ferr := session.Fail(err.Error(), s.now())
		if ferr != nil {
			return ferr
		}
		if terr := s.sessions.Transition(ctx, session, model.SessionStatusProcessing); terr != nil {
			return terr
		}
		if !retry {
			log.Warn("Restoration failed after retry", zap.Error(err))
			return err
		}

		log.Warn("Restoration attempt failed, retrying",
			zap.Duration("backoff", s.opts.RetryBackoff),
			zap.Error(err))
		if err := sleepContext(ctx, s.opts.RetryBackoff); err != nil {
			return err
		}
	}
}

func (s *RestorationService) attempt(ctx context.Context, session *model.RestorationSession) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	started := s.now()
	resultURL, err := s.inference.Restore(attemptCtx, session.OriginalURL)
	elapsed := time.Since(started)

	switch {
	case err == nil:
		s.metrics.ObserveInference("success", elapsed)
	case errors.Is(err, context.DeadlineExceeded):
		s.metrics.ObserveInference("timeout", elapsed)
		return "", fmt.Errorf("inference timed out after %s: %w", s.opts.AttemptTimeout, err)
	default:
		s.metrics.ObserveInference("error", elapsed)
	}
	return resultURL, err
}

// attachPreviews renders and stores previews of the result. Failures are logged only.
func (s *RestorationService) attachPreviews(ctx context.Context, session *model.RestorationSession, log *zap.Logger) {
	if s.previews == nil || session.ResultURL == nil {
		return
	}

	body, err := s.inference.Fetch(ctx, *session.ResultURL)
	if err != nil {
		log.Warn("Failed to fetch restored image for previews", zap.Error(err))
		return
	}
	defer body.Close()

	previews, err := s.previews.Generate(body)
	if err != nil {
		log.Warn("Failed to generate previews", zap.Error(err))
		return
	}

	urls := make([]string, 0, len(previews))
	for _, p := range previews {
		key := fmt.Sprintf("previews/%s/%d.jpg", session.ID, p.Width)
		if err := s.storage.Put(ctx, key, p.ContentType, bytes.NewReader(p.Data), int64(len(p.Data))); err != nil {
			log.Warn("Failed to store preview", zap.Int("width", p.Width), zap.Error(err))
			return
		}
		url, err := s.storage.PresignGet(ctx, key)
		if err != nil {
			log.Warn("Failed to presign preview", zap.Int("width", p.Width), zap.Error(err))
			return
		}
		urls = append(urls, url)
	}

	if err := s.sessions.SetPreviews(ctx, session.ID, urls); err != nil {
		log.Warn("Failed to save preview urls", zap.Error(err))
		return
	}
	session.PreviewURLs = urls
}

func (s *RestorationService) publish(ctx context.Context, eventType string, session *model.RestorationSession, log *zap.Logger) {
	event := messaging.Event{
		Type:       eventType,
		OccurredAt: s.now(),
		Data:       session,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish session event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
