package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tourmate-app/backend/internal/server/models"
)

type stopKey struct {
	sessionID string
	stopID    string
}

type stopRecord struct {
	completedBy      map[string]struct{}
	firstCompletedAt time.Time
	lastUpdatedAt    time.Time
	reportVersion    int64
}

// MemoryRepository keeps merged stop progress in process memory. The merge
// runs under one mutex, giving the same atomic read-modify-write the SQL
// store gets from its transaction.
type MemoryRepository struct {
	mu    sync.Mutex
	stops map[stopKey]*stopRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{stops: make(map[stopKey]*stopRecord)}
}

func (r *MemoryRepository) Merge(_ context.Context, sessionID, stopID, userID string, completedAt, now time.Time) (*models.StopProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stopKey{sessionID: sessionID, stopID: stopID}
	rec, ok := r.stops[key]
	if !ok {
		rec = &stopRecord{
			completedBy:      make(map[string]struct{}),
			firstCompletedAt: completedAt,
		}
		r.stops[key] = rec
	}

	rec.completedBy[userID] = struct{}{}
	if completedAt.Before(rec.firstCompletedAt) {
		rec.firstCompletedAt = completedAt
	}
	rec.lastUpdatedAt = now
	rec.reportVersion++

	return r.snapshotLocked(sessionID, stopID, rec), nil
}

func (r *MemoryRepository) snapshotLocked(sessionID, stopID string, rec *stopRecord) *models.StopProgress {
	completedBy := make([]string, 0, len(rec.completedBy))
	for uid := range rec.completedBy {
		completedBy = append(completedBy, uid)
	}
	sort.Strings(completedBy)

	return &models.StopProgress{
		SessionID:        sessionID,
		StopID:           stopID,
		CompletedBy:      completedBy,
		FirstCompletedAt: rec.firstCompletedAt,
		LastUpdatedAt:    rec.lastUpdatedAt,
		ReportVersion:    rec.reportVersion,
	}
}

func (r *MemoryRepository) ListBySession(_ context.Context, sessionID string) ([]*models.StopProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.StopProgress
	for key, rec := range r.stops {
		if key.sessionID != sessionID {
			continue
		}
		result = append(result, r.snapshotLocked(key.sessionID, key.stopID, rec))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StopID < result[j].StopID })
	return result, nil
}

// PurgeSession drops all stop records of a deleted session, mirroring the
// SQL ON DELETE CASCADE.
func (r *MemoryRepository) PurgeSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.stops {
		if key.sessionID == sessionID {
			delete(r.stops, key)
		}
	}
}
