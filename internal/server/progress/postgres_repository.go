package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tourmate-app/backend/internal/dbx"
	"github.com/tourmate-app/backend/internal/server/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

// Merge runs the union merge in one transaction: upsert the per-stop record
// (earliest-wins first_completed_at, version bump), record the reporter in
// the completion set, then read the set back. The completion insert is
// ON CONFLICT DO NOTHING, which is what makes duplicate reports idempotent.
func (r *PostgresRepository) Merge(ctx context.Context, sessionID, stopID, userID string, completedAt, now time.Time) (*models.StopProgress, error) {
	upsertProgress :=
		`INSERT INTO stop_progress (session_id, stop_id, first_completed_at, last_updated_at, report_version)
		 VALUES ($1, $2, $3, $4, 1)
		 ON CONFLICT (session_id, stop_id) DO UPDATE
		 SET first_completed_at = LEAST(stop_progress.first_completed_at, EXCLUDED.first_completed_at),
		     last_updated_at = EXCLUDED.last_updated_at,
		     report_version = stop_progress.report_version + 1
		 RETURNING first_completed_at, last_updated_at, report_version`

	insertCompletion :=
		`INSERT INTO stop_completions (session_id, stop_id, user_id, completed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, stop_id, user_id) DO NOTHING`

	selectCompletedBy :=
		`SELECT user_id FROM stop_completions
		 WHERE session_id = $1 AND stop_id = $2
		 ORDER BY user_id`

	record := &models.StopProgress{SessionID: sessionID, StopID: stopID}

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			err := tx.QueryRowContext(ctx, upsertProgress, sessionID, stopID, completedAt, now).
				Scan(&record.FirstCompletedAt, &record.LastUpdatedAt, &record.ReportVersion)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}

			if _, err := tx.ExecContext(ctx, insertCompletion, sessionID, stopID, userID, completedAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}

			rows, err := tx.QueryContext(ctx, selectCompletedBy, sessionID, stopID)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			defer rows.Close()

			record.CompletedBy = record.CompletedBy[:0]
			for rows.Next() {
				var uid string
				if err := rows.Scan(&uid); err != nil {
					return fmt.Errorf("db error: %w", err)
				}
				record.CompletedBy = append(record.CompletedBy, uid)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.StopProgress, error) {
	selectProgress :=
		`SELECT session_id, stop_id, first_completed_at, last_updated_at, report_version
		 FROM stop_progress
		 WHERE session_id = $1
		 ORDER BY stop_id`

	selectCompletions :=
		`SELECT stop_id, user_id FROM stop_completions
		 WHERE session_id = $1
		 ORDER BY stop_id, user_id`

	var result []*models.StopProgress

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, selectProgress, sessionID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		result = result[:0]
		byStop := make(map[string]*models.StopProgress)
		for rows.Next() {
			p := &models.StopProgress{}
			if err := rows.Scan(&p.SessionID, &p.StopID, &p.FirstCompletedAt, &p.LastUpdatedAt, &p.ReportVersion); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			result = append(result, p)
			byStop[p.StopID] = p
		}
		if err := rows.Err(); err != nil {
			return err
		}

		crows, err := r.db.QueryContext(ctx, selectCompletions, sessionID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer crows.Close()

		for crows.Next() {
			var stopID, userID string
			if err := crows.Scan(&stopID, &userID); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			if p, ok := byStop[stopID]; ok {
				p.CompletedBy = append(p.CompletedBy, userID)
			}
		}
		return crows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
