package memberships

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/models"
)

// MemoryRepository keeps memberships in process memory, grouped by session.
type MemoryRepository struct {
	mu        sync.RWMutex
	bySession map[string][]*models.TeamMembership
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySession: make(map[string][]*models.TeamMembership)}
}

func cloneMembership(m *models.TeamMembership) *models.TeamMembership {
	c := *m
	if m.LeftAt != nil {
		t := *m.LeftAt
		c.LeftAt = &t
	}
	return &c
}

func (r *MemoryRepository) Add(_ context.Context, m *models.TeamMembership) (*models.TeamMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bySession[m.SessionID] {
		if existing.UserID == m.UserID && existing.Live() {
			return nil, common.ErrAlreadyMember
		}
	}

	r.bySession[m.SessionID] = append(r.bySession[m.SessionID], cloneMembership(m))
	return m, nil
}

func (r *MemoryRepository) GetLive(_ context.Context, sessionID, userID string) (*models.TeamMembership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.bySession[sessionID] {
		if m.UserID == userID && m.Live() {
			return cloneMembership(m), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) MarkLeft(_ context.Context, sessionID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.bySession[sessionID] {
		if m.UserID == userID && m.Live() {
			t := at
			m.LeftAt = &t
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *MemoryRepository) ListLive(ctx context.Context, sessionID string) ([]*models.TeamMembership, error) {
	return r.listFiltered(sessionID, true), nil
}

func (r *MemoryRepository) ListAll(ctx context.Context, sessionID string) ([]*models.TeamMembership, error) {
	return r.listFiltered(sessionID, false), nil
}

func (r *MemoryRepository) listFiltered(sessionID string, liveOnly bool) []*models.TeamMembership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.TeamMembership
	for _, m := range r.bySession[sessionID] {
		if liveOnly && !m.Live() {
			continue
		}
		result = append(result, cloneMembership(m))
	}

	// Same deterministic order as the SQL store.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].JoinedAt.Before(result[j].JoinedAt)
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}

func (r *MemoryRepository) PromoteLeader(_ context.Context, sessionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.bySession[sessionID] {
		if m.UserID == userID && m.Live() {
			m.Role = models.RoleLeader
			return nil
		}
	}
	return common.ErrNotFound
}

// PurgeSession drops all memberships of a deleted session, mirroring the
// SQL ON DELETE CASCADE.
func (r *MemoryRepository) PurgeSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bySession, sessionID)
}
