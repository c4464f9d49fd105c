package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/model"
)

// SessionRepository persists restoration sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *model.RestorationSession) error
	Get(ctx context.Context, id uuid.UUID) (*model.RestorationSession, error)

	// Transition saves session if its stored status still equals from.
	// It returns ErrSessionConflict when the row moved on in the meantime.
	Transition(ctx context.Context, session *model.RestorationSession, from model.SessionStatus) error

	// SetFunding records how the session is paid for.
	SetFunding(ctx context.Context, session *model.RestorationSession) error

	// SetPreviews stores preview urls of a completed session.
	SetPreviews(ctx context.Context, id uuid.UUID, urls []string) error
}
