// Package memberships owns persistence of TeamMembership records.
package memberships

import (
	"context"
	"time"

	"github.com/tourmate-app/backend/internal/server/models"
)

// Repository is the membership half of the session store. At most one live
// membership per (session, user) exists at a time; the stores enforce it
// (partial unique index in Postgres, map key in memory).
type Repository interface {
	// Add inserts a membership; common.ErrAlreadyMember when the user
	// already holds a live membership on the session.
	Add(ctx context.Context, m *models.TeamMembership) (*models.TeamMembership, error)

	// GetLive returns the user's live membership or common.ErrNotFound.
	GetLive(ctx context.Context, sessionID, userID string) (*models.TeamMembership, error)

	// MarkLeft closes the live membership; common.ErrNotFound when there is none.
	MarkLeft(ctx context.Context, sessionID, userID string, at time.Time) error

	// ListLive returns live memberships ordered by joinedAt, then userID,
	// the deterministic order used for leadership transfer.
	ListLive(ctx context.Context, sessionID string) ([]*models.TeamMembership, error)

	// ListAll returns every membership of the session, left ones included.
	ListAll(ctx context.Context, sessionID string) ([]*models.TeamMembership, error)

	// PromoteLeader sets the live membership's role to Leader.
	PromoteLeader(ctx context.Context, sessionID, userID string) error
}
