// Package progress folds concurrent stop-completion reports into one
// canonical per-stop record and computes team-level snapshots.
package progress

import (
	"context"
	"time"

	"github.com/tourmate-app/backend/internal/server/models"
)

// Repository is the per-stop progress half of the session store.
//
// Merge is a commutative union: the resulting CompletedBy set depends only
// on the set of reports ever applied, not on their arrival order, and never
// shrinks. FirstCompletedAt keeps the earliest completedAt observed, so a
// delayed report from a device with an earlier clock can move it back.
type Repository interface {
	// Merge applies one accepted report and returns the updated record.
	// completedAt is the device-reported completion time, now the server
	// receipt time used for lastUpdatedAt. ReportVersion increments on
	// every call, duplicates included.
	Merge(ctx context.Context, sessionID, stopID, userID string, completedAt, now time.Time) (*models.StopProgress, error)

	// ListBySession returns all stop records of the session.
	ListBySession(ctx context.Context, sessionID string) ([]*models.StopProgress, error)
}
