package db

import (
	"context"
	"database/sql"

	"github.com/tourmate-app/backend/internal/server/achievements"
	"github.com/tourmate-app/backend/internal/server/content"
	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/progress"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

// InMemoryRepositoryManager backs the session store with process memory.
// Selected when no database DSN is configured; state does not survive a
// restart.
type InMemoryRepositoryManager struct {
	sessions    *sessions.MemoryRepository
	memberships *memberships.MemoryRepository
	progress    *progress.MemoryRepository
	unlocks     *achievements.MemoryRepository
	content     *content.MemoryStore
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		sessions:    sessions.NewMemoryRepository(),
		memberships: memberships.NewMemoryRepository(),
		progress:    progress.NewMemoryRepository(),
		unlocks:     achievements.NewMemoryRepository(),
		content:     content.NewMemoryStore(),
	}
}

func (m *InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Sessions() sessions.Repository {
	return &cascadingSessionRepo{MemoryRepository: m.sessions, m: m}
}

// cascadingSessionRepo mirrors the SQL ON DELETE CASCADE: deleting a session
// also drops its memberships, progress, and unlocks.
type cascadingSessionRepo struct {
	*sessions.MemoryRepository
	m *InMemoryRepositoryManager
}

func (r *cascadingSessionRepo) Delete(ctx context.Context, id string) error {
	if err := r.MemoryRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.m.memberships.PurgeSession(id)
	r.m.progress.PurgeSession(id)
	r.m.unlocks.PurgeSession(id)
	return nil
}

func (m *InMemoryRepositoryManager) Memberships() memberships.Repository {
	return m.memberships
}

func (m *InMemoryRepositoryManager) Progress() progress.Repository {
	return m.progress
}

func (m *InMemoryRepositoryManager) Unlocks() achievements.Repository {
	return m.unlocks
}

func (m *InMemoryRepositoryManager) Content() content.Store {
	return m.content
}

// ContentStore exposes the concrete in-memory content store so callers can
// seed tours.
func (m *InMemoryRepositoryManager) ContentStore() *content.MemoryStore {
	return m.content
}
