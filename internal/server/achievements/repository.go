// Package achievements evaluates milestone predicates against team progress
// and records unlocks at most once per (session, milestone).
package achievements

import (
	"context"

	"github.com/tourmate-app/backend/internal/server/models"
)

// Repository is the unlock half of the session store. The conditional
// insert keyed by (sessionID, milestoneID) is the idempotency guard: no
// interleaving of Evaluate calls can produce two records for the same key.
type Repository interface {
	// InsertIfAbsent stores the unlock unless one already exists for the
	// (session, milestone) pair; created reports which case happened.
	InsertIfAbsent(ctx context.Context, unlock *models.MilestoneUnlock) (created bool, err error)

	// ListBySession returns the session's unlocks ordered by milestone id.
	ListBySession(ctx context.Context, sessionID string) ([]*models.MilestoneUnlock, error)
}
