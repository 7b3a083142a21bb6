package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/tourmate-app/backend/internal/server/achievements"
	"github.com/tourmate-app/backend/internal/server/content"
	"github.com/tourmate-app/backend/internal/server/memberships"
	"github.com/tourmate-app/backend/internal/server/migrations"
	"github.com/tourmate-app/backend/internal/server/progress"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

type PostgresRepositoryManager struct {
	db          *sql.DB
	sessions    sessions.Repository
	memberships memberships.Repository
	progress    progress.Repository
	unlocks     achievements.Repository
	content     content.Store
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Sessions() sessions.Repository {
	return m.sessions
}

func (m *PostgresRepositoryManager) Memberships() memberships.Repository {
	return m.memberships
}

func (m *PostgresRepositoryManager) Progress() progress.Repository {
	return m.progress
}

func (m *PostgresRepositoryManager) Unlocks() achievements.Repository {
	return m.unlocks
}

func (m *PostgresRepositoryManager) Content() content.Store {
	return m.content
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	sessionRepo, err := sessions.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("session repo creation error: %w", err)
	}

	membershipRepo, err := memberships.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("membership repo creation error: %w", err)
	}

	progressRepo, err := progress.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("progress repo creation error: %w", err)
	}

	unlockRepo, err := achievements.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("unlock repo creation error: %w", err)
	}

	contentStore, err := content.NewPostgresStore(db)
	if err != nil {
		return nil, fmt.Errorf("content store creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:          db,
		sessions:    sessionRepo,
		memberships: membershipRepo,
		progress:    progressRepo,
		unlocks:     unlockRepo,
		content:     contentStore,
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
