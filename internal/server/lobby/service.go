// Package lobby implements the waiting-room state machine: members join and
// leave while a session is Forming, and the leader starts the run.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/models"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

type Service struct {
	sessions sessions.Repository
	members  memberships.Repository
	clock    func() time.Time
	newID    func() string
}

func NewService(sr sessions.Repository, mr memberships.Repository) *Service {
	return &Service{
		sessions: sr,
		members:  mr,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// Join adds userID to the Forming session identified by sessionID, or, when
// sessionID is empty, to the open lobby of tourID, creating one with the
// caller as Leader if no lobby is open.
func (s *Service) Join(ctx context.Context, tourID, sessionID, userID string) (*models.TeamMembership, error) {
	now := s.clock()

	var (
		session *models.TourSession
		err     error
	)
	if sessionID != "" {
		session, err = s.sessions.Get(ctx, sessionID)
	} else {
		session, err = s.sessions.FindFormingByTour(ctx, tourID)
		if errors.Is(err, common.ErrNotFound) {
			return s.createSession(ctx, tourID, userID, now)
		}
	}
	if err != nil {
		return nil, err
	}

	if session.State != models.SessionForming {
		return nil, common.ErrSessionNotJoinable
	}

	m := &models.TeamMembership{
		ID:        s.newID(),
		SessionID: session.ID,
		UserID:    userID,
		Role:      models.RoleMember,
		JoinedAt:  now,
	}
	if _, err := s.members.Add(ctx, m); err != nil {
		return nil, err
	}

	if err := s.sessions.TouchActivity(ctx, session.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return m, nil
}

func (s *Service) createSession(ctx context.Context, tourID, userID string, now time.Time) (*models.TeamMembership, error) {
	session := &models.TourSession{
		ID:             s.newID(),
		TourID:         tourID,
		State:          models.SessionForming,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// A concurrent Join opened a lobby for this tour first; join
			// the winner's lobby as a regular member.
			winner, findErr := s.sessions.FindFormingByTour(ctx, tourID)
			if findErr != nil {
				return nil, findErr
			}
			m, addErr := s.addMember(ctx, winner.ID, userID, models.RoleMember, now)
			if addErr != nil {
				return nil, addErr
			}
			if err := s.sessions.TouchActivity(ctx, winner.ID, now); err != nil {
				return nil, fmt.Errorf("touch session: %w", err)
			}
			return m, nil
		}
		return nil, err
	}

	return s.addMember(ctx, session.ID, userID, models.RoleLeader, now)
}

func (s *Service) addMember(ctx context.Context, sessionID, userID string, role models.MemberRole, now time.Time) (*models.TeamMembership, error) {
	m := &models.TeamMembership{
		ID:        s.newID(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  now,
	}
	if _, err := s.members.Add(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Leave closes the caller's membership. A departing leader hands leadership
// to the earliest-joined remaining member; the last member leaving a Forming
// session abandons it.
func (s *Service) Leave(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State.Terminal() {
		// Membership records are frozen once a session ends.
		return common.ErrConflict
	}

	m, err := s.members.GetLive(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotTeamMember
		}
		return err
	}

	now := s.clock()
	if err := s.members.MarkLeft(ctx, sessionID, userID, now); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotTeamMember
		}
		return err
	}

	remaining, err := s.members.ListLive(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		if session.State == models.SessionForming {
			return s.abandon(ctx, sessionID, now)
		}
		return nil
	}

	if m.Role == models.RoleLeader {
		emptied, err := s.transferLeadership(ctx, sessionID, session.State, remaining, now)
		if err != nil {
			return err
		}
		if emptied {
			return nil
		}
	}

	return s.sessions.TouchActivity(ctx, sessionID, now)
}

// transferLeadership promotes the earliest-joined live member. The chosen
// successor may itself leave between the list and the promote; in that case
// the list is re-read and the next candidate is tried, until a promote
// lands or nobody is left. Reports whether the session emptied out, which
// abandons a Forming session.
func (s *Service) transferLeadership(ctx context.Context, sessionID string, state models.SessionState, live []*models.TeamMembership, now time.Time) (bool, error) {
	for {
		if len(live) == 0 {
			if state == models.SessionForming {
				return true, s.abandon(ctx, sessionID, now)
			}
			return true, nil
		}

		// ListLive is ordered by joinedAt then userID, so live[0] is the
		// deterministic successor.
		err := s.members.PromoteLeader(ctx, sessionID, live[0].UserID)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return false, fmt.Errorf("promote leader: %w", err)
		}

		live, err = s.members.ListLive(ctx, sessionID)
		if err != nil {
			return false, err
		}
	}
}

func (s *Service) abandon(ctx context.Context, sessionID string, now time.Time) error {
	_, err := s.sessions.TransitionState(ctx, sessionID, models.SessionForming, models.SessionAbandoned, now)
	if errors.Is(err, common.ErrConflict) {
		// Lost the race to a concurrent start or abandon; re-read and retry
		// once, then accept whatever state won.
		session, getErr := s.sessions.Get(ctx, sessionID)
		if getErr != nil {
			return getErr
		}
		if session.State != models.SessionForming {
			return nil
		}
		_, err = s.sessions.TransitionState(ctx, sessionID, models.SessionForming, models.SessionAbandoned, now)
		if errors.Is(err, common.ErrConflict) {
			return err
		}
	}
	return err
}

// Start transitions the caller's Forming session to Active. Out of any
// number of concurrent calls exactly one succeeds; the rest observe a
// non-Forming state and get ErrNotForming.
func (s *Service) Start(ctx context.Context, sessionID, callerID string) (*models.TourSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != models.SessionForming {
		return nil, common.ErrNotForming
	}

	m, err := s.members.GetLive(ctx, sessionID, callerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotLeader
		}
		return nil, err
	}
	if m.Role != models.RoleLeader {
		return nil, common.ErrNotLeader
	}

	live, err := s.members.ListLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, common.ErrEmptyTeam
	}

	started, err := s.sessions.TransitionState(ctx, sessionID, models.SessionForming, models.SessionActive, s.clock())
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrNotForming
		}
		return nil, err
	}
	return started, nil
}
