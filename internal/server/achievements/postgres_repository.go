package achievements

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tourmate-app/backend/internal/dbx"
	"github.com/tourmate-app/backend/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, unlock *models.MilestoneUnlock) (bool, error) {
	query :=
		`INSERT INTO milestone_unlocks (session_id, milestone_id, unlocked_at, triggering_user_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, milestone_id) DO NOTHING`

	var created bool
	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, query,
			unlock.SessionID, unlock.MilestoneID, unlock.UnlockedAt, unlock.TriggeringUserID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		created = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.MilestoneUnlock, error) {
	query :=
		`SELECT session_id, milestone_id, unlocked_at, triggering_user_id
		 FROM milestone_unlocks
		 WHERE session_id = $1
		 ORDER BY milestone_id`

	var result []*models.MilestoneUnlock

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, sessionID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			u := &models.MilestoneUnlock{}
			if err := rows.Scan(&u.SessionID, &u.MilestoneID, &u.UnlockedAt, &u.TriggeringUserID); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			result = append(result, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
