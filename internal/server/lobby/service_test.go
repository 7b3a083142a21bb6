package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/models"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

func newTestService(t *testing.T) (*Service, sessions.Repository, memberships.Repository) {
	t.Helper()

	sr := sessions.NewMemoryRepository()
	mr := memberships.NewMemoryRepository()
	svc := NewService(sr, mr)

	// Deterministic ids and a clock that advances one second per call, so
	// joinedAt ordering in tests is unambiguous.
	var idSeq, tickSeq int
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.newID = func() string {
		idSeq++
		return fmt.Sprintf("id-%03d", idSeq)
	}
	svc.clock = func() time.Time {
		tickSeq++
		return base.Add(time.Duration(tickSeq) * time.Second)
	}

	return svc, sr, mr
}

func TestJoin_CreatesLobbyWithLeader(t *testing.T) {
	svc, sr, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeader, m.Role)
	assert.Equal(t, "alice", m.UserID)

	session, err := sr.Get(ctx, m.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionForming, session.State)
	assert.Equal(t, "tour-1", session.TourID)
	assert.Nil(t, session.StartedAt)
}

func TestJoin_FindsOpenLobbyByTour(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	member, err := svc.Join(ctx, "tour-1", "", "bob")
	require.NoError(t, err)
	assert.Equal(t, leader.SessionID, member.SessionID)
	assert.Equal(t, models.RoleMember, member.Role)
}

func TestJoin_BySessionID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	member, err := svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)
	assert.Equal(t, leader.SessionID, member.SessionID)
}

func TestJoin_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Join(context.Background(), "", "nope", "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestJoin_AlreadyMember(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "tour-1", "", "alice")
	assert.ErrorIs(t, err, common.ErrAlreadyMember)
}

func TestJoin_NotJoinableAfterStart(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Start(ctx, leader.SessionID, "alice")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	assert.ErrorIs(t, err, common.ErrSessionNotJoinable)
}

func TestJoin_RejoinAfterLeave(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "bob"))

	m, err := svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
}

// missingFirstFind wraps a sessions repository so the first FindFormingByTour
// misses, the way a concurrent Join that has not committed yet is invisible.
type missingFirstFind struct {
	sessions.Repository

	mu     sync.Mutex
	missed bool
}

func (r *missingFirstFind) FindFormingByTour(ctx context.Context, tourID string) (*models.TourSession, error) {
	r.mu.Lock()
	first := !r.missed
	r.missed = true
	r.mu.Unlock()
	if first {
		return nil, common.ErrNotFound
	}
	return r.Repository.FindFormingByTour(ctx, tourID)
}

func TestJoin_LosingCreateRaceJoinsWinnersLobby(t *testing.T) {
	sr := sessions.NewMemoryRepository()
	mr := memberships.NewMemoryRepository()
	ctx := context.Background()

	// alice's Join commits first and opens the tour's only forming lobby.
	winner, err := NewService(sr, mr).Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	// bob's Join raced alice's: his lobby lookup missed, his create hits
	// the one-forming-lobby-per-tour guard, and he lands in alice's lobby
	// as a regular member.
	svc := NewService(&missingFirstFind{Repository: sr}, mr)
	m, err := svc.Join(ctx, "tour-1", "", "bob")
	require.NoError(t, err)
	assert.Equal(t, winner.SessionID, m.SessionID)
	assert.Equal(t, models.RoleMember, m.Role)

	live, err := mr.ListLive(ctx, winner.SessionID)
	require.NoError(t, err)
	require.Len(t, live, 2)
}

func TestLeave_NotTeamMember(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	err = svc.Leave(ctx, leader.SessionID, "mallory")
	assert.ErrorIs(t, err, common.ErrNotTeamMember)
}

func TestLeave_LeaderHandsOffToEarliestJoined(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "carol")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "alice"))

	// bob joined before carol, so bob inherits the lobby.
	m, err := mr.GetLive(ctx, leader.SessionID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeader, m.Role)

	m, err = mr.GetLive(ctx, leader.SessionID, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
}

// departingMembers wraps a memberships repository and runs afterListLive
// once, right after the first ListLive returns. It interleaves a concurrent
// leave between a membership snapshot and whatever acts on it.
type departingMembers struct {
	memberships.Repository

	once          sync.Once
	afterListLive func()
}

func (d *departingMembers) ListLive(ctx context.Context, sessionID string) ([]*models.TeamMembership, error) {
	live, err := d.Repository.ListLive(ctx, sessionID)
	if err == nil {
		d.once.Do(d.afterListLive)
	}
	return live, err
}

func TestLeave_SuccessorLeavesDuringHandoff(t *testing.T) {
	svc, sr, mr := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "carol")
	require.NoError(t, err)

	// bob, the would-be successor, leaves between the departing leader's
	// membership snapshot and the promote.
	svc.members = &departingMembers{
		Repository: mr,
		afterListLive: func() {
			require.NoError(t, mr.MarkLeft(ctx, leader.SessionID, "bob", time.Now()))
		},
	}

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "alice"))

	// Leadership lands on carol, the only member left.
	m, err := mr.GetLive(ctx, leader.SessionID, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeader, m.Role)

	session, err := sr.Get(ctx, leader.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionForming, session.State)

	// The new leader can start the session.
	_, err = svc.Start(ctx, leader.SessionID, "carol")
	require.NoError(t, err)
}

func TestLeave_EveryoneGoneDuringHandoffAbandonsLobby(t *testing.T) {
	svc, sr, mr := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)

	svc.members = &departingMembers{
		Repository: mr,
		afterListLive: func() {
			require.NoError(t, mr.MarkLeft(ctx, leader.SessionID, "bob", time.Now()))
		},
	}

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "alice"))

	session, err := sr.Get(ctx, leader.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, session.State)
}

func TestLeave_LastMemberAbandonsLobby(t *testing.T) {
	svc, sr, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "alice"))

	session, err := sr.Get(ctx, leader.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAbandoned, session.State)
	require.NotNil(t, session.EndedAt)
}

func TestLeave_ActiveSessionStaysActiveWhenEmpty(t *testing.T) {
	svc, sr, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Start(ctx, leader.SessionID, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, leader.SessionID, "alice"))

	session, err := sr.Get(ctx, leader.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.State)
}

func TestLeave_TerminalSession(t *testing.T) {
	svc, sr, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Start(ctx, leader.SessionID, "alice")
	require.NoError(t, err)
	_, err = sr.TransitionState(ctx, leader.SessionID, models.SessionActive, models.SessionCompleted, time.Now())
	require.NoError(t, err)

	err = svc.Leave(ctx, leader.SessionID, "alice")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestStart_HappyPath(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)

	session, err := svc.Start(ctx, leader.SessionID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.State)
	require.NotNil(t, session.StartedAt)
}

func TestStart_NotLeader(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "", leader.SessionID, "bob")
	require.NoError(t, err)

	_, err = svc.Start(ctx, leader.SessionID, "bob")
	assert.ErrorIs(t, err, common.ErrNotLeader)

	_, err = svc.Start(ctx, leader.SessionID, "mallory")
	assert.ErrorIs(t, err, common.ErrNotLeader)
}

func TestStart_NotForming(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)
	_, err = svc.Start(ctx, leader.SessionID, "alice")
	require.NoError(t, err)

	_, err = svc.Start(ctx, leader.SessionID, "alice")
	assert.ErrorIs(t, err, common.ErrNotForming)
}

func TestStart_ConcurrentExactlyOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var mu sync.Mutex
	tick := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	var seq int
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	leader, err := svc.Join(ctx, "tour-1", "", "alice")
	require.NoError(t, err)

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Start(ctx, leader.SessionID, "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
			continue
		}
		require.True(t, errors.Is(err, common.ErrNotForming), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, started, "exactly one Start call must win")
}
