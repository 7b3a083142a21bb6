// Package db selects and wires a concrete session-store backend: Postgres
// for production, in-memory for tests and storeless development.
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

// RepositoryManager hands out the repositories that together form the
// session store. All repositories of one manager share a backend.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error

	Sessions() sessions.Repository
	Memberships() memberships.Repository
	Progress() progress.Repository
	Unlocks() achievements.Repository
	Content() content.Store
}
