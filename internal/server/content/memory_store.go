package content

import (
	"context"
	"sync"

	"github.com/tourmate-app/backend/internal/common"
)

// MemoryStore is a map-backed content store for tests and the storeless
// development mode.
type MemoryStore struct {
	mu    sync.RWMutex
	tours map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tours: make(map[string]map[string]struct{})}
}

// SetTour registers (or replaces) the stop set of a tour.
func (s *MemoryStore) SetTour(tourID string, stopIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stops := make(map[string]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		stops[id] = struct{}{}
	}
	s.tours[tourID] = stops
}

func (s *MemoryStore) GetStopIDs(_ context.Context, tourID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stops, ok := s.tours[tourID]
	if !ok || len(stops) == 0 {
		return nil, common.ErrNotFound
	}

	out := make(map[string]struct{}, len(stops))
	for id := range stops {
		out[id] = struct{}{}
	}
	return out, nil
}
