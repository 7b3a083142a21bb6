package memberships

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

const membershipColumns = `id, session_id, user_id, role, joined_at, left_at`

func (r *PostgresRepository) Add(ctx context.Context, m *models.TeamMembership) (*models.TeamMembership, error) {
	query :=
		`INSERT INTO team_memberships (id, session_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query, m.ID, m.SessionID, m.UserID, m.Role, m.JoinedAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrAlreadyMember
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) GetLive(ctx context.Context, sessionID, userID string) (*models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships
		 WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL`

	m := &models.TeamMembership{}
	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		err := r.db.QueryRowContext(ctx, query, sessionID, userID).
			Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.JoinedAt, &m.LeftAt)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) MarkLeft(ctx context.Context, sessionID, userID string, at time.Time) error {
	query :=
		`UPDATE team_memberships SET left_at = $3
		 WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL`

	return dbx.WithRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, sessionID, userID, at)
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

func (r *PostgresRepository) ListLive(ctx context.Context, sessionID string) ([]*models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships
		 WHERE session_id = $1 AND left_at IS NULL
		 ORDER BY joined_at, user_id`

	return r.list(ctx, query, sessionID)
}

func (r *PostgresRepository) ListAll(ctx context.Context, sessionID string) ([]*models.TeamMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships
		 WHERE session_id = $1
		 ORDER BY joined_at, user_id`

	return r.list(ctx, query, sessionID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.TeamMembership, error) {
	var result []*models.TeamMembership

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			m := &models.TeamMembership{}
			if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.JoinedAt, &m.LeftAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			result = append(result, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) PromoteLeader(ctx context.Context, sessionID, userID string) error {
	query :=
		`UPDATE team_memberships SET role = $3
		 WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL`

	return dbx.WithRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query, sessionID, userID, models.RoleLeader)
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
