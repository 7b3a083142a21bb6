package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/models"
)

// Evaluator checks milestone predicates after every accepted progress report
// and after session start, and emits each unlock at most once.
type Evaluator struct {
	unlocks Repository
	members memberships.Repository
	catalog Catalog
	clock   func() time.Time
}

func NewEvaluator(ur Repository, mr memberships.Repository, catalog Catalog) *Evaluator {
	return &Evaluator{
		unlocks: ur,
		members: mr,
		catalog: catalog,
		clock:   time.Now,
	}
}

// Evaluate compares the snapshot against the tour's milestone predicates and
// returns the unlocks created by this call. triggeredBy is the reporter that
// produced the snapshot (empty for the start transition). Concurrent calls
// over overlapping snapshots are safe: the conditional insert in the unlock
// store admits only one creator per (session, milestone).
func (e *Evaluator) Evaluate(ctx context.Context, session *models.TourSession, snap *models.TeamProgressSnapshot, triggeredBy string) ([]*models.MilestoneUnlock, error) {
	milestones, err := e.catalog.ListMilestones(ctx, session.TourID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}

	var emitted []*models.MilestoneUnlock
	var notifyErrs []error
	for _, m := range milestones {
		if !m.Predicate.Holds(session, snap) {
			continue
		}

		unlock := &models.MilestoneUnlock{
			SessionID:        session.ID,
			MilestoneID:      m.ID,
			UnlockedAt:       e.clock(),
			TriggeringUserID: triggeredBy,
		}
		created, err := e.unlocks.InsertIfAbsent(ctx, unlock)
		if err != nil {
			return emitted, err
		}
		if !created {
			continue
		}
		emitted = append(emitted, unlock)

		if err := e.notifyCatalog(ctx, session.ID, m.ID); err != nil {
			notifyErrs = append(notifyErrs, err)
		}
	}

	return emitted, errors.Join(notifyErrs...)
}

// notifyCatalog records the unlock for every member present at unlock time.
// The unlock row already exists when this runs and is never re-evaluated, so
// every member is attempted even when one fails; the failures are joined
// into the returned error.
func (e *Evaluator) notifyCatalog(ctx context.Context, sessionID, milestoneID string) error {
	live, err := e.members.ListLive(ctx, sessionID)
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range live {
		if err := e.catalog.RecordUnlock(ctx, m.UserID, milestoneID); err != nil {
			errs = append(errs, fmt.Errorf("record unlock for %s: %w", m.UserID, err))
		}
	}
	return errors.Join(errs...)
}
