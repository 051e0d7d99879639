package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-alliance-bot/internal/model"
)

// Common errors for claim operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

// pgForeignKeyViolation is the Postgres error code raised when a claim
// references a player id that does not exist.
const pgForeignKeyViolation = "23503"

// ClaimRepository handles claim request persistence and the claim state
// machine. All decisions go through a single conditional update so two
// reviewers can never both win the same claim.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository creates a new ClaimRepository instance.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Submit inserts a pending claim with an insert-time expiry and returns the
// submission joined with the player's current name. Returns
// ErrPlayerNotFound if the referenced player does not exist.
func (r *ClaimRepository) Submit(ctx context.Context, discordUserID string, playerID int64, expiryDays int) (*model.ClaimSubmission, error) {
	const query = `
		WITH created AS (
			INSERT INTO claim_requests (discord_user_id, player_id, status, expires_at)
			VALUES ($1, $2, 'pending', NOW() + ($3::int * INTERVAL '1 day'))
			RETURNING id, discord_user_id, player_id
		)
		SELECT c.id, c.discord_user_id, c.player_id, p.current_name
		FROM created c
		JOIN players p ON p.id = c.player_id
	`

	var sub model.ClaimSubmission
	err := r.pool.QueryRow(ctx, query, discordUserID, playerID, expiryDays).Scan(
		&sub.ClaimID,
		&sub.DiscordUserID,
		&sub.PlayerID,
		&sub.PlayerName,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to submit claim: %w", err)
	}

	return &sub, nil
}

// MarkJustVisiting records that a member opted out of claiming a player.
// Just-visiting rows never enter review; they exist for bookkeeping and the
// same expiry-based purge as denied claims.
func (r *ClaimRepository) MarkJustVisiting(ctx context.Context, discordUserID string, expiryDays int) error {
	const query = `
		INSERT INTO claim_requests (discord_user_id, player_id, status, expires_at)
		VALUES ($1, NULL, 'just_visiting', NOW() + ($2::int * INTERVAL '1 day'))
	`

	if _, err := r.pool.Exec(ctx, query, discordUserID, expiryDays); err != nil {
		return fmt.Errorf("failed to mark just visiting: %w", err)
	}
	return nil
}

// decideQuery flips a pending claim to the given status and returns the
// affected row, or no row if the claim was already decided.
const decideQuery = `
	UPDATE claim_requests
	SET status = $3, reviewed_at = NOW(), reviewed_by_discord_user_id = $2
	WHERE id = $1
	  AND status = 'pending'
	RETURNING id, discord_user_id, player_id, reviewed_by_discord_user_id
`

// Approve transitions a pending claim to approved and upserts the matching
// link in the same transaction, so a claim can never end up approved but
// unlinked. Returns nil (and no error) when the claim was no longer
// pending; callers surface that as an informational message.
func (r *ClaimRepository) Approve(ctx context.Context, claimID int64, reviewerID string) (*model.ClaimDecision, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin approve transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var decision model.ClaimDecision
	err = tx.QueryRow(ctx, decideQuery, claimID, reviewerID, model.ClaimStatusApproved).Scan(
		&decision.ClaimID,
		&decision.DiscordUserID,
		&decision.PlayerID,
		&decision.ReviewerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to approve claim: %w", err)
	}

	const linkQuery = `
		INSERT INTO discord_links (discord_user_id, player_id, linked_by_discord_user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (discord_user_id)
		DO UPDATE SET
			player_id = EXCLUDED.player_id,
			linked_by_discord_user_id = EXCLUDED.linked_by_discord_user_id,
			unlinked_at = NULL,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, linkQuery, decision.DiscordUserID, decision.PlayerID, decision.ReviewerID); err != nil {
		return nil, fmt.Errorf("failed to upsert link for approved claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approve transaction: %w", err)
	}
	return &decision, nil
}

// Deny transitions a pending claim to denied. Returns nil when the claim
// was no longer pending.
func (r *ClaimRepository) Deny(ctx context.Context, claimID int64, reviewerID string) (*model.ClaimDecision, error) {
	var decision model.ClaimDecision
	err := r.pool.QueryRow(ctx, decideQuery, claimID, reviewerID, model.ClaimStatusDenied).Scan(
		&decision.ClaimID,
		&decision.DiscordUserID,
		&decision.PlayerID,
		&decision.ReviewerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to deny claim: %w", err)
	}
	return &decision, nil
}

// PurgeExpiredDenied deletes denied claims whose expiry passed more than
// retentionDays ago. Approved rows are kept as history.
func (r *ClaimRepository) PurgeExpiredDenied(ctx context.Context, retentionDays int) (int64, error) {
	const query = `
		DELETE FROM claim_requests
		WHERE status = 'denied'
		  AND expires_at IS NOT NULL
		  AND expires_at < NOW() - ($1::int * INTERVAL '1 day')
	`

	result, err := r.pool.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired denied claims: %w", err)
	}
	return result.RowsAffected(), nil
}
