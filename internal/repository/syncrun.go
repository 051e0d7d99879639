package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncRunRepository records membership ingestion runs.
type SyncRunRepository struct {
	pool *pgxpool.Pool
}

// NewSyncRunRepository creates a new SyncRunRepository instance.
func NewSyncRunRepository(pool *pgxpool.Pool) *SyncRunRepository {
	return &SyncRunRepository{pool: pool}
}

// Start inserts a running sync_runs row and returns its id.
func (r *SyncRunRepository) Start(ctx context.Context, message string) (int64, error) {
	const query = `
		INSERT INTO sync_runs (status, message)
		VALUES ('running', $1)
		RETURNING id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, message).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}
	return id, nil
}

// Complete marks a sync run successful with its processed-player count.
func (r *SyncRunRepository) Complete(ctx context.Context, syncRunID int64, processedPlayers int) error {
	const query = `
		UPDATE sync_runs
		SET status = 'success', finished_at = NOW(), processed_players = $2, message = 'sync completed'
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, syncRunID, processedPlayers); err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}
	return nil
}

// Fail marks a sync run failed with the error message.
func (r *SyncRunRepository) Fail(ctx context.Context, syncRunID int64, message string) error {
	const query = `
		UPDATE sync_runs
		SET status = 'failed', finished_at = NOW(), message = $2, errors_count = errors_count + 1
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, syncRunID, message); err != nil {
		return fmt.Errorf("failed to mark sync run failed: %w", err)
	}
	return nil
}
