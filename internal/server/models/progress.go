package models

import "time"

// StopProgress is the canonical merged record for one stop of one session.
//
// CompletedBy is a set: concurrent reports from different members union into
// it and it never shrinks, even if a reporter later leaves the team.
// FirstCompletedAt is the earliest completion timestamp ever observed for the
// stop, which may move backwards when a delayed report carries an earlier
// device clock. ReportVersion increments on every accepted report.
type StopProgress struct {
	SessionID        string
	StopID           string
	CompletedBy      []string
	FirstCompletedAt time.Time
	LastUpdatedAt    time.Time
	ReportVersion    int64
}

// TeamProgressSnapshot is the caller-facing view of merged team progress.
//
// Version is the sum of all per-stop report versions. Every accepted report
// increments exactly one of those counters, so Version is monotonic and lets
// pollers detect staleness without locking.
type TeamProgressSnapshot struct {
	SessionID   string
	State       SessionState
	Fraction    float64
	TotalStops  int
	PerStop     map[string][]string
	Version     int64
	GeneratedAt time.Time
}
