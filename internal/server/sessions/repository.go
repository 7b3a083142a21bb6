// Package sessions owns persistence of TourSession records, including the
// compare-and-set state transitions every other component relies on.
package sessions

import (
	"context"
	"time"

	"github.com/tourmate-app/backend/internal/server/models"
)

// Repository is the session half of the session store.
//
// TransitionState is the single write path for state changes: it only
// applies when the current state equals the expected one and returns
// common.ErrConflict otherwise, which is what makes start/complete/abandon
// exactly-once under concurrent callers.
type Repository interface {
	Create(ctx context.Context, session *models.TourSession) (*models.TourSession, error)
	Get(ctx context.Context, id string) (*models.TourSession, error)

	// FindFormingByTour returns the Forming session for a tour, or
	// common.ErrNotFound when no lobby is currently open.
	FindFormingByTour(ctx context.Context, tourID string) (*models.TourSession, error)

	// TransitionState CASes state from->to, setting startedAt when to is
	// Active and endedAt when to is terminal. Returns common.ErrConflict
	// when the stored state is not `from`.
	TransitionState(ctx context.Context, id string, from, to models.SessionState, at time.Time) (*models.TourSession, error)

	// TouchActivity bumps lastActivityAt and clears the stale flag.
	TouchActivity(ctx context.Context, id string, at time.Time) error

	// MarkStale flags an Active session that stopped reporting progress.
	MarkStale(ctx context.Context, id string, stale bool) error

	// ListIdleForming returns Forming sessions with no activity since cutoff.
	ListIdleForming(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error)

	// ListIdleActive returns non-stale Active sessions with no activity since cutoff.
	ListIdleActive(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error)

	// ListExpired returns terminal sessions whose endedAt precedes cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error)

	// Delete removes the session and, in the SQL store, cascades to
	// memberships, progress, and unlocks.
	Delete(ctx context.Context, id string) error
}
