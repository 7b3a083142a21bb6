package content

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tourmate-app/backend/internal/common"
	"github.com/tourmate-app/backend/internal/dbx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetStopIDs(ctx context.Context, tourID string) (map[string]struct{}, error) {
	query := `SELECT stop_id FROM tour_stops WHERE tour_id = $1`

	var stops map[string]struct{}

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, tourID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		stops = make(map[string]struct{})
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			stops[id] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if len(stops) == 0 {
		return nil, common.ErrNotFound
	}
	return stops, nil
}
