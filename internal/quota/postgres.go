package quota

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, modelID int64) (int, error) {
	query := `SELECT count FROM model_usage WHERE model_id = $1`

	var count int
	err := s.db.QueryRowContext(ctx, query, modelID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query usage: %w", err)
	}

	return count, nil
}

// Increment is a single atomic upsert so concurrent requests against the
// same model never lose updates, even across processes.
func (s *PostgresStore) Increment(ctx context.Context, modelID int64) error {
	query := `
		INSERT INTO model_usage (model_id, count)
		VALUES ($1, 1)
		ON CONFLICT (model_id)
		DO UPDATE SET count = model_usage.count + 1
	`

	if _, err := s.db.ExecContext(ctx, query, modelID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, modelID int64) error {
	query := `
		INSERT INTO model_usage (model_id, count)
		VALUES ($1, 0)
		ON CONFLICT (model_id)
		DO UPDATE SET count = 0
	`

	if _, err := s.db.ExecContext(ctx, query, modelID); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}

	return nil
}
