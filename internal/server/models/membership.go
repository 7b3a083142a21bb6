package models

import "time"

// MemberRole distinguishes the single leader from regular members.
type MemberRole string

const (
	RoleLeader MemberRole = "leader"
	RoleMember MemberRole = "member"
)

// TeamMembership links a user to a tour session. A user may hold at most one
// live (LeftAt == nil) membership per session; leaving and rejoining while
// the lobby is still forming creates a new record.
type TeamMembership struct {
	ID        string
	SessionID string
	UserID    string
	Role      MemberRole
	JoinedAt  time.Time
	LeftAt    *time.Time
}

// Live reports whether the membership is still current.
func (m *TeamMembership) Live() bool {
	return m.LeftAt == nil
}
