// Package models defines server-side data models persisted in the database.
package models

import "time"

// SessionState is the lifecycle state of a tour session.
//
// The state machine only moves forward:
//
//	Forming -> Active -> Completed
//	Forming -> Abandoned
type SessionState string

const (
	SessionForming   SessionState = "forming"
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionAbandoned SessionState = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// TourSession is one team's run of a specific tour, from lobby formation to
// completion or abandonment.
//
// StartedAt is set iff the state is Active or Completed; EndedAt is set iff
// the state is Completed or Abandoned. LastActivityAt is bumped on every
// membership change and accepted progress report and drives the idle sweep.
type TourSession struct {
	ID             string
	TourID         string
	State          SessionState
	Stale          bool
	CreatedAt      time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	LastActivityAt time.Time
}
