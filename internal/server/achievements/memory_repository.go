package achievements

import (
	"context"
	"sort"
	"sync"

	"github.com/tourmate-app/backend/internal/server/models"
)

type unlockKey struct {
	sessionID   string
	milestoneID string
}

// MemoryRepository keeps milestone unlocks in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	unlocks map[unlockKey]*models.MilestoneUnlock
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{unlocks: make(map[unlockKey]*models.MilestoneUnlock)}
}

func (r *MemoryRepository) InsertIfAbsent(_ context.Context, unlock *models.MilestoneUnlock) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := unlockKey{sessionID: unlock.SessionID, milestoneID: unlock.MilestoneID}
	if _, exists := r.unlocks[key]; exists {
		return false, nil
	}

	c := *unlock
	r.unlocks[key] = &c
	return true, nil
}

func (r *MemoryRepository) ListBySession(_ context.Context, sessionID string) ([]*models.MilestoneUnlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.MilestoneUnlock
	for key, u := range r.unlocks {
		if key.sessionID != sessionID {
			continue
		}
		c := *u
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].MilestoneID < result[j].MilestoneID })
	return result, nil
}

// PurgeSession drops all unlocks of a deleted session, mirroring the SQL
// ON DELETE CASCADE.
func (r *MemoryRepository) PurgeSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.unlocks {
		if key.sessionID == sessionID {
			delete(r.unlocks, key)
		}
	}
}
