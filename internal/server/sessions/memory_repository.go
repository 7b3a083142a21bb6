package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/models"
)

// MemoryRepository keeps sessions in process memory. It backs unit tests and
// the storeless development mode; transition semantics match the Postgres
// implementation, including ErrConflict on a failed state guard.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.TourSession
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*models.TourSession)}
}

func cloneSession(s *models.TourSession) *models.TourSession {
	c := *s
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, session *models.TourSession) (*models.TourSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.State == models.SessionForming {
		for _, s := range r.sessions {
			// At most one forming lobby per tour, same as the partial
			// unique index in Postgres.
			if s.TourID == session.TourID && s.State == models.SessionForming {
				return nil, common.ErrConflict
			}
		}
	}

	r.sessions[session.ID] = cloneSession(session)
	return session, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.TourSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *MemoryRepository) FindFormingByTour(_ context.Context, tourID string) (*models.TourSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.TourSession
	for _, s := range r.sessions {
		if s.TourID != tourID || s.State != models.SessionForming {
			continue
		}
		if found == nil || s.CreatedAt.Before(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, common.ErrNotFound
	}
	return cloneSession(found), nil
}

func (r *MemoryRepository) TransitionState(_ context.Context, id string, from, to models.SessionState, at time.Time) (*models.TourSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if s.State != from {
		return nil, common.ErrConflict
	}

	s.State = to
	switch to {
	case models.SessionActive:
		t := at
		s.StartedAt = &t
	case models.SessionCompleted, models.SessionAbandoned:
		t := at
		s.EndedAt = &t
	}
	s.LastActivityAt = at
	return cloneSession(s), nil
}

func (r *MemoryRepository) TouchActivity(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return common.ErrNotFound
	}
	s.LastActivityAt = at
	s.Stale = false
	return nil
}

func (r *MemoryRepository) MarkStale(_ context.Context, id string, stale bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Stale = stale
	return nil
}

func (r *MemoryRepository) ListIdleForming(_ context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	return r.filter(func(s *models.TourSession) bool {
		return s.State == models.SessionForming && s.LastActivityAt.Before(cutoff)
	}), nil
}

func (r *MemoryRepository) ListIdleActive(_ context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	return r.filter(func(s *models.TourSession) bool {
		return s.State == models.SessionActive && !s.Stale && s.LastActivityAt.Before(cutoff)
	}), nil
}

func (r *MemoryRepository) ListExpired(_ context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	return r.filter(func(s *models.TourSession) bool {
		return s.State.Terminal() && s.EndedAt != nil && s.EndedAt.Before(cutoff)
	}), nil
}

func (r *MemoryRepository) filter(keep func(*models.TourSession) bool) []*models.TourSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.TourSession
	for _, s := range r.sessions {
		if keep(s) {
			result = append(result, cloneSession(s))
		}
	}
	return result
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}
