package archive

import (
	"context"
	"errors"
	"time"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/logging"
	sc "github.com/tourmate-app/backend/internal/server/config"
	"github.com/tourmate-app/backend/internal/server/models"
	"github.com/tourmate-app/backend/internal/server/shared/db"
)

// Sweeper runs the periodic session lifecycle pass:
//
//   - Forming sessions idle past the lobby window are abandoned,
//   - Active sessions silent past the stale window are flagged stale,
//   - terminal sessions older than the retention window are exported via
//     the Archiver and deleted.
type Sweeper struct {
	store    db.RepositoryManager
	archiver Archiver
	log      logging.Logger

	lobbyIdleWindow   time.Duration
	activeStaleWindow time.Duration
	retentionWindow   time.Duration
	interval          time.Duration

	clock func() time.Time
}

func NewSweeper(store db.RepositoryManager, archiver Archiver, cfg *sc.Config, log logging.Logger) *Sweeper {
	if archiver == nil {
		archiver = NopArchiver{}
	}
	return &Sweeper{
		store:             store,
		archiver:          archiver,
		log:               log,
		lobbyIdleWindow:   cfg.LobbyIdleWindow,
		activeStaleWindow: cfg.ActiveStaleWindow,
		retentionWindow:   cfg.RetentionWindow,
		interval:          cfg.SweepInterval,
		clock:             time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one full pass. Errors on individual sessions are logged
// and skipped; the next pass retries them.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock()
	s.abandonIdleLobbies(ctx, now)
	s.flagStaleSessions(ctx, now)
	s.archiveExpired(ctx, now)
}

func (s *Sweeper) abandonIdleLobbies(ctx context.Context, now time.Time) {
	idle, err := s.store.Sessions().ListIdleForming(ctx, now.Add(-s.lobbyIdleWindow))
	if err != nil {
		s.log.Error(ctx, "list idle lobbies", "error", err)
		return
	}

	for _, session := range idle {
		_, err := s.store.Sessions().TransitionState(ctx, session.ID,
			models.SessionForming, models.SessionAbandoned, now)
		if errors.Is(err, common.ErrConflict) {
			// Someone started or abandoned it between list and CAS.
			continue
		}
		if err != nil {
			s.log.Error(ctx, "abandon idle lobby", "session_id", session.ID, "error", err)
			continue
		}
		s.log.Info(ctx, "abandoned idle lobby", "session_id", session.ID, "tour_id", session.TourID)
	}
}

func (s *Sweeper) flagStaleSessions(ctx context.Context, now time.Time) {
	idle, err := s.store.Sessions().ListIdleActive(ctx, now.Add(-s.activeStaleWindow))
	if err != nil {
		s.log.Error(ctx, "list idle active sessions", "error", err)
		return
	}

	for _, session := range idle {
		if err := s.store.Sessions().MarkStale(ctx, session.ID, true); err != nil {
			s.log.Error(ctx, "mark session stale", "session_id", session.ID, "error", err)
			continue
		}
		s.log.Info(ctx, "flagged stale session", "session_id", session.ID, "tour_id", session.TourID)
	}
}

func (s *Sweeper) archiveExpired(ctx context.Context, now time.Time) {
	expired, err := s.store.Sessions().ListExpired(ctx, now.Add(-s.retentionWindow))
	if err != nil {
		s.log.Error(ctx, "list expired sessions", "error", err)
		return
	}

	for _, session := range expired {
		if err := s.archiveOne(ctx, session); err != nil {
			s.log.Error(ctx, "archive session", "session_id", session.ID, "error", err)
			continue
		}
		if err := s.store.Sessions().Delete(ctx, session.ID); err != nil {
			s.log.Error(ctx, "delete archived session", "session_id", session.ID, "error", err)
			continue
		}
		s.log.Info(ctx, "archived session", "session_id", session.ID, "state", string(session.State))
	}
}

func (s *Sweeper) archiveOne(ctx context.Context, session *models.TourSession) error {
	members, err := s.store.Memberships().ListAll(ctx, session.ID)
	if err != nil {
		return err
	}
	records, err := s.store.Progress().ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}
	unlocks, err := s.store.Unlocks().ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}
	return s.archiver.Archive(ctx, &SessionBundle{
		Session:     session,
		Memberships: members,
		Progress:    records,
		Unlocks:     unlocks,
	})
}
