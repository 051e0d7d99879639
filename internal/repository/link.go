package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-alliance-bot/internal/model"
)

// LinkRepository handles the durable Discord-user-to-player associations.
type LinkRepository struct {
	pool *pgxpool.Pool
}

// NewLinkRepository creates a new LinkRepository instance.
func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

// Upsert links a Discord user to a player, replacing any previous
// association and reviving an unlinked row.
func (r *LinkRepository) Upsert(ctx context.Context, discordUserID string, playerID int64, linkedBy string) error {
	const query = `
		INSERT INTO discord_links (discord_user_id, player_id, linked_by_discord_user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (discord_user_id)
		DO UPDATE SET
			player_id = EXCLUDED.player_id,
			linked_by_discord_user_id = EXCLUDED.linked_by_discord_user_id,
			unlinked_at = NULL,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, discordUserID, playerID, linkedBy); err != nil {
		return fmt.Errorf("failed to upsert link: %w", err)
	}
	return nil
}

// UnlinkByPlayer soft-deletes every active link to the given player and
// returns the affected Discord user ids so the caller can reconcile them.
func (r *LinkRepository) UnlinkByPlayer(ctx context.Context, playerID int64) ([]string, error) {
	const query = `
		UPDATE discord_links
		SET unlinked_at = NOW(), updated_at = NOW()
		WHERE player_id = $1
		  AND unlinked_at IS NULL
		RETURNING discord_user_id
	`

	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to unlink player: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlinked user: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unlinked users: %w", err)
	}
	return userIDs, nil
}

const linkedStateColumns = `
	SELECT dl.discord_user_id, dl.player_id, p.current_alliance_id, p.current_alliance_rank
	FROM discord_links dl
	LEFT JOIN players p ON p.id = dl.player_id
	WHERE dl.unlinked_at IS NULL
`

// LinkedState returns the active link plus current membership facts for one
// Discord user, or nil if the user has no active link.
func (r *LinkRepository) LinkedState(ctx context.Context, discordUserID string) (*model.LinkedMemberState, error) {
	query := linkedStateColumns + ` AND dl.discord_user_id = $1 LIMIT 1`

	var state model.LinkedMemberState
	err := r.pool.QueryRow(ctx, query, discordUserID).Scan(
		&state.DiscordUserID,
		&state.PlayerID,
		&state.AllianceID,
		&state.RankCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get linked state: %w", err)
	}
	return &state, nil
}

// AllLinkedStates returns the active link plus membership facts for every
// linked Discord user.
func (r *LinkRepository) AllLinkedStates(ctx context.Context) ([]model.LinkedMemberState, error) {
	rows, err := r.pool.Query(ctx, linkedStateColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to get linked states: %w", err)
	}
	defer rows.Close()

	var states []model.LinkedMemberState
	for rows.Next() {
		var state model.LinkedMemberState
		err := rows.Scan(
			&state.DiscordUserID,
			&state.PlayerID,
			&state.AllianceID,
			&state.RankCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked states: %w", err)
	}
	return states, nil
}
