package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/content"
	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/models"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

// Service is the progress tracker: it accepts stop-completion reports from
// team members, merges them, and drives the Active -> Completed transition
// when the team has visited every stop.
type Service struct {
	sessions sessions.Repository
	members  memberships.Repository
	progress Repository
	content  content.Store
	clock    func() time.Time
}

func NewService(sr sessions.Repository, mr memberships.Repository, pr Repository, cs content.Store) *Service {
	return &Service{
		sessions: sr,
		members:  mr,
		progress: pr,
		content:  cs,
		clock:    time.Now,
	}
}

// Report merges one stop-completion report into the canonical team record
// and returns the resulting snapshot. Reports are accepted from live team
// members of Active sessions only; duplicates are not an error. When the
// report completes the tour, the session is transitioned to Completed
// exactly once across all concurrent reporters.
func (s *Service) Report(ctx context.Context, sessionID, userID, stopID string, completedAt time.Time) (*models.TeamProgressSnapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != models.SessionActive {
		return nil, common.ErrSessionNotActive
	}

	if _, err := s.members.GetLive(ctx, sessionID, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotTeamMember
		}
		return nil, err
	}

	stops, err := s.content.GetStopIDs(ctx, session.TourID)
	if err != nil {
		return nil, fmt.Errorf("tour stops: %w", err)
	}
	if _, ok := stops[stopID]; !ok {
		return nil, common.ErrNotFound
	}

	now := s.clock()
	if _, err := s.progress.Merge(ctx, sessionID, stopID, userID, completedAt, now); err != nil {
		return nil, err
	}
	if err := s.sessions.TouchActivity(ctx, sessionID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	snapshot, err := s.buildSnapshot(ctx, session, stops)
	if err != nil {
		return nil, err
	}

	if snapshot.Fraction >= 1.0 && snapshot.State == models.SessionActive {
		state, err := s.complete(ctx, sessionID, now)
		if err != nil {
			return nil, err
		}
		snapshot.State = state
	}

	return snapshot, nil
}

// complete CASes Active -> Completed. A lost race means a concurrent report
// got there first, which is success from the caller's point of view.
func (s *Service) complete(ctx context.Context, sessionID string, now time.Time) (models.SessionState, error) {
	_, err := s.sessions.TransitionState(ctx, sessionID, models.SessionActive, models.SessionCompleted, now)
	if err == nil {
		return models.SessionCompleted, nil
	}
	if !errors.Is(err, common.ErrConflict) {
		return "", err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.State != models.SessionActive {
		return session.State, nil
	}

	// Still Active after a conflict: retry the CAS once, then surface.
	if _, err := s.sessions.TransitionState(ctx, sessionID, models.SessionActive, models.SessionCompleted, now); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return "", common.ErrConflict
		}
		return "", err
	}
	return models.SessionCompleted, nil
}

// Snapshot returns the current team progress without mutating anything.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*models.TeamProgressSnapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stops, err := s.content.GetStopIDs(ctx, session.TourID)
	if err != nil {
		return nil, fmt.Errorf("tour stops: %w", err)
	}

	return s.buildSnapshot(ctx, session, stops)
}

func (s *Service) buildSnapshot(ctx context.Context, session *models.TourSession, stops map[string]struct{}) (*models.TeamProgressSnapshot, error) {
	records, err := s.progress.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	perStop := make(map[string][]string, len(records))
	var version int64
	completed := 0
	for _, rec := range records {
		if _, ok := stops[rec.StopID]; !ok {
			continue
		}
		perStop[rec.StopID] = rec.CompletedBy
		version += rec.ReportVersion
		if len(rec.CompletedBy) > 0 {
			completed++
		}
	}

	total := len(stops)
	fraction := 0.0
	if total > 0 {
		fraction = float64(completed) / float64(total)
	}

	return &models.TeamProgressSnapshot{
		SessionID:   session.ID,
		State:       session.State,
		Fraction:    fraction,
		TotalStops:  total,
		PerStop:     perStop,
		Version:     version,
		GeneratedAt: s.clock(),
	}, nil
}
