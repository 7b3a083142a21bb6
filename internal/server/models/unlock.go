package models

import "time"

// MilestoneUnlock records that a team crossed a milestone. At most one
// record exists per (SessionID, MilestoneID); it is never mutated after
// creation.
type MilestoneUnlock struct {
	SessionID        string
	MilestoneID      string
	UnlockedAt       time.Time
	TriggeringUserID string
}
