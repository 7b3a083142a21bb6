// Package common defines shared sentinel errors used across the session
// coordinator. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Lobby errors.
	ErrSessionNotJoinable = errors.New("session not joinable")
	ErrAlreadyMember      = errors.New("already a team member")
	ErrNotTeamMember      = errors.New("not a team member")
	ErrNotLeader          = errors.New("not the team leader")
	ErrNotForming         = errors.New("session is not forming")
	ErrEmptyTeam          = errors.New("team is empty")

	// Progress errors.
	ErrSessionNotActive = errors.New("session is not active")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Storage availability after retry exhaustion.
	ErrUnavailable = errors.New("storage unavailable")
)
