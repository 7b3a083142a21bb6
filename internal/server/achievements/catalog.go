package achievements

import (
	"context"
	"time"
)

// Milestone pairs a catalog id with the predicate that unlocks it.
type Milestone struct {
	ID        string
	Name      string
	Predicate Predicate
}

// Catalog is the achievement-catalog collaborator: it supplies the
// milestones of a tour and receives one RecordUnlock call per team member
// present when a milestone unlocks.
type Catalog interface {
	ListMilestones(ctx context.Context, tourID string) ([]Milestone, error)
	RecordUnlock(ctx context.Context, userID, milestoneID string) error
}

// StaticCatalog serves a fixed milestone list for every tour. It is the
// default wiring until the catalog service supplies per-tour milestones;
// RecordUnlock is a no-op because unlocks are already persisted locally.
type StaticCatalog struct {
	milestones []Milestone
}

func NewStaticCatalog(milestones []Milestone) *StaticCatalog {
	return &StaticCatalog{milestones: milestones}
}

// DefaultMilestones is the built-in milestone set applied to every tour.
func DefaultMilestones() []Milestone {
	return []Milestone{
		{ID: "first-stop", Name: "First Steps", Predicate: Predicate{Kind: KindFirstStop}},
		{ID: "halfway", Name: "Halfway There", Predicate: Predicate{Kind: KindFraction, Fraction: 0.5}},
		{ID: "full-tour", Name: "Tour Complete", Predicate: Predicate{Kind: KindFraction, Fraction: 1.0}},
		{ID: "speed-run", Name: "Speed Run", Predicate: Predicate{Kind: KindCompletedWithin, Within: 2 * time.Hour}},
	}
}

func (c *StaticCatalog) ListMilestones(_ context.Context, _ string) ([]Milestone, error) {
	out := make([]Milestone, len(c.milestones))
	copy(out, c.milestones)
	return out, nil
}

func (c *StaticCatalog) RecordUnlock(_ context.Context, _, _ string) error {
	return nil
}
