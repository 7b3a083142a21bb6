package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/dbx"
	"github.com/tourmate-app/backend/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

const sessionColumns = `id, tour_id, state, stale, created_at, started_at, ended_at, last_activity_at`

func scanSession(row *sql.Row) (*models.TourSession, error) {
	s := &models.TourSession{}
	err := row.Scan(&s.ID, &s.TourID, &s.State, &s.Stale, &s.CreatedAt, &s.StartedAt, &s.EndedAt, &s.LastActivityAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.TourSession) (*models.TourSession, error) {
	query :=
		`INSERT INTO tour_sessions (id, tour_id, state, stale, created_at, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			session.ID, session.TourID, session.State, session.Stale, session.CreatedAt, session.LastActivityAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Forming lobbies are unique per tour; a concurrent create won.
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.TourSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tour_sessions WHERE id = $1`

	var s *models.TourSession
	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		s, err = scanSession(r.db.QueryRowContext(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) FindFormingByTour(ctx context.Context, tourID string) (*models.TourSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tour_sessions
		 WHERE tour_id = $1 AND state = $2
		 ORDER BY created_at
		 LIMIT 1`

	var s *models.TourSession
	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		s, err = scanSession(r.db.QueryRowContext(ctx, query, tourID, models.SessionForming))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) TransitionState(ctx context.Context, id string, from, to models.SessionState, at time.Time) (*models.TourSession, error) {
	// started_at/ended_at follow the target state; the WHERE clause is the CAS.
	query :=
		`UPDATE tour_sessions
		 SET state = $3,
		     started_at = CASE WHEN $3 = 'active' THEN $4 ELSE started_at END,
		     ended_at = CASE WHEN $3 IN ('completed', 'abandoned') THEN $4 ELSE ended_at END,
		     last_activity_at = $4
		 WHERE id = $1 AND state = $2
		 RETURNING ` + sessionColumns

	var s *models.TourSession
	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		s, err = scanSession(r.db.QueryRowContext(ctx, query, id, from, to, at))
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Row exists but the state guard failed, or the session is gone.
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, common.ErrConflict
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE tour_sessions SET last_activity_at = $2, stale = FALSE WHERE id = $1`

	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) MarkStale(ctx context.Context, id string, stale bool) error {
	query := `UPDATE tour_sessions SET stale = $2 WHERE id = $1`

	return r.exec(ctx, query, id, stale)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	return dbx.WithRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) ListIdleForming(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tour_sessions
		 WHERE state = $1 AND last_activity_at < $2
		 ORDER BY last_activity_at`

	return r.list(ctx, query, models.SessionForming, cutoff)
}

func (r *PostgresRepository) ListIdleActive(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tour_sessions
		 WHERE state = $1 AND stale = FALSE AND last_activity_at < $2
		 ORDER BY last_activity_at`

	return r.list(ctx, query, models.SessionActive, cutoff)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]*models.TourSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tour_sessions
		 WHERE state IN ($1, $2) AND ended_at < $3
		 ORDER BY ended_at`

	return r.list(ctx, query, models.SessionCompleted, models.SessionAbandoned, cutoff)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.TourSession, error) {
	var result []*models.TourSession

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			s := &models.TourSession{}
			if err := rows.Scan(&s.ID, &s.TourID, &s.State, &s.Stale, &s.CreatedAt, &s.StartedAt, &s.EndedAt, &s.LastActivityAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			result = append(result, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tour_sessions WHERE id = $1`

	return dbx.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}
