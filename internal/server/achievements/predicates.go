package achievements

import (
	"time"

	"github.com/tourmate-app/backend/internal/server/models"
)

// PredicateKind tags the closed set of milestone predicate variants. All
// predicates are pure functions of session state and a progress snapshot;
// evaluating the same snapshot twice gives the same answer.
type PredicateKind string

const (
	// KindFirstStop holds once any stop has a non-empty completion set.
	KindFirstStop PredicateKind = "first_stop"
	// KindFraction holds once the team completion fraction reaches Fraction.
	KindFraction PredicateKind = "fraction"
	// KindCompletedWithin holds when the tour is fully completed within
	// Within of the session start.
	KindCompletedWithin PredicateKind = "completed_within"
)

// Predicate is one tagged predicate variant. Only the field matching Kind
// is meaningful.
type Predicate struct {
	Kind     PredicateKind
	Fraction float64
	Within   time.Duration
}

// Holds evaluates the predicate against the session and snapshot.
func (p Predicate) Holds(session *models.TourSession, snap *models.TeamProgressSnapshot) bool {
	switch p.Kind {
	case KindFirstStop:
		for _, completedBy := range snap.PerStop {
			if len(completedBy) > 0 {
				return true
			}
		}
		return false

	case KindFraction:
		return snap.Fraction >= p.Fraction

	case KindCompletedWithin:
		if snap.Fraction < 1.0 || session.StartedAt == nil {
			return false
		}
		finished := snap.GeneratedAt
		if session.EndedAt != nil {
			finished = *session.EndedAt
		}
		return finished.Sub(*session.StartedAt) <= p.Within

	default:
		return false
	}
}
