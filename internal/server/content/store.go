// Package content exposes the tour content needed by the session
// coordinator: the set of stops that makes up a tour. Stop definitions and
// geography live in the content pipeline, which is out of scope here.
package content

import "context"

// Store resolves a tour to its stop set, the denominator of the team
// completion fraction.
type Store interface {
	// GetStopIDs returns the stop ids of the tour, or common.ErrNotFound
	// for a tour without any stops.
	GetStopIDs(ctx context.Context, tourID string) (map[string]struct{}, error)
}
