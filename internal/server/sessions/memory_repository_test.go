package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/models"
)

func newFormingSession(t *testing.T, r *MemoryRepository, id, tourID string) *models.TourSession {
	t.Helper()
	now := time.Now()
	s, err := r.Create(context.Background(), &models.TourSession{
		ID:             id,
		TourID:         tourID,
		State:          models.SessionForming,
		CreatedAt:      now,
		LastActivityAt: now,
	})
	require.NoError(t, err)
	return s
}

func TestMemoryRepository_TransitionState_CAS(t *testing.T) {
	t.Parallel()

	r := NewMemoryRepository()
	newFormingSession(t, r, "s1", "tour-1")
	ctx := context.Background()

	s, err := r.TransitionState(ctx, "s1", models.SessionForming, models.SessionActive, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, s.State)
	require.NotNil(t, s.StartedAt)
	require.Nil(t, s.EndedAt)

	_, err = r.TransitionState(ctx, "s1", models.SessionForming, models.SessionActive, time.Now())
	require.ErrorIs(t, err, common.ErrConflict)

	_, err = r.TransitionState(ctx, "missing", models.SessionForming, models.SessionActive, time.Now())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_TransitionState_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	r := NewMemoryRepository()
	newFormingSession(t, r, "s1", "tour-1")
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.TransitionState(ctx, "s1", models.SessionForming, models.SessionActive, time.Now()); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	require.Equal(t, 1, winners, "exactly one concurrent transition may succeed")
}

func TestMemoryRepository_OneFormingLobbyPerTour(t *testing.T) {
	t.Parallel()

	r := NewMemoryRepository()
	ctx := context.Background()

	base := time.Now()
	_, err := r.Create(ctx, &models.TourSession{
		ID: "s-open", TourID: "tour-9", State: models.SessionForming,
		CreatedAt: base, LastActivityAt: base,
	})
	require.NoError(t, err)

	// Only one forming lobby may exist per tour.
	_, err = r.Create(ctx, &models.TourSession{
		ID: "s-dup", TourID: "tour-9", State: models.SessionForming,
		CreatedAt: base.Add(time.Second), LastActivityAt: base,
	})
	require.ErrorIs(t, err, common.ErrConflict)

	// A forming lobby for a different tour is fine.
	_, err = r.Create(ctx, &models.TourSession{
		ID: "s-other", TourID: "tour-10", State: models.SessionForming,
		CreatedAt: base, LastActivityAt: base,
	})
	require.NoError(t, err)

	s, err := r.FindFormingByTour(ctx, "tour-9")
	require.NoError(t, err)
	require.Equal(t, "s-open", s.ID)

	_, err = r.FindFormingByTour(ctx, "unknown")
	require.ErrorIs(t, err, common.ErrNotFound)

	// Once the open lobby starts, a new one may form for the tour.
	_, err = r.TransitionState(ctx, "s-open", models.SessionForming, models.SessionActive, base)
	require.NoError(t, err)
	_, err = r.Create(ctx, &models.TourSession{
		ID: "s-next", TourID: "tour-9", State: models.SessionForming,
		CreatedAt: base.Add(time.Minute), LastActivityAt: base,
	})
	require.NoError(t, err)
}

func TestMemoryRepository_Lists(t *testing.T) {
	t.Parallel()

	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	newFormingSession(t, r, "idle", "tour-1")
	fresh := newFormingSession(t, r, "fresh", "tour-2")
	require.NoError(t, r.TouchActivity(ctx, fresh.ID, now.Add(time.Hour)))

	idle, err := r.ListIdleForming(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, idle, 1)
	require.Equal(t, "idle", idle[0].ID)

	_, err = r.TransitionState(ctx, "idle", models.SessionForming, models.SessionAbandoned, now)
	require.NoError(t, err)

	expired, err := r.ListExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "idle", expired[0].ID)
}

func TestMemoryRepository_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := NewMemoryRepository()
	newFormingSession(t, r, "s1", "tour-1")
	ctx := context.Background()

	a, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	a.State = models.SessionCompleted

	b, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, models.SessionForming, b.State, "mutating a returned record must not leak into the store")
}
