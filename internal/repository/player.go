// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"discord-alliance-bot/internal/model"
)

// ClaimablePageSize is the number of players shown per wizard page. Bounded
// by the platform's 25-option select menu limit.
const ClaimablePageSize = 25

// PlayerUpsert is one player row as delivered by the ingestion source.
type PlayerUpsert struct {
	PlayerID   int64
	PlayerName string
	RankCode   int
	Level      *int
	Might      *int64
	Loot       *int64
	Honor      *int64
}

// NameMatch is one candidate from a name lookup.
type NameMatch struct {
	PlayerID   int64
	PlayerName string
	AllianceID *int64
}

// PlayerRepository handles player and alliance persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// UpsertAlliance records or renames a tracked alliance.
func (r *PlayerRepository) UpsertAlliance(ctx context.Context, allianceID int64, name string) error {
	const query = `
		INSERT INTO alliances (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, allianceID, name); err != nil {
		return fmt.Errorf("failed to upsert alliance: %w", err)
	}
	return nil
}

// UpsertAlliancePlayers batch-upserts one alliance's roster in a single
// statement via UNNEST.
func (r *PlayerRepository) UpsertAlliancePlayers(ctx context.Context, allianceID int64, players []PlayerUpsert) error {
	if len(players) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(players))
	names := make([]string, 0, len(players))
	allianceIDs := make([]int64, 0, len(players))
	rankCodes := make([]int, 0, len(players))
	levels := make([]*int, 0, len(players))
	mights := make([]*int64, 0, len(players))
	loots := make([]*int64, 0, len(players))
	honors := make([]*int64, 0, len(players))

	for _, p := range players {
		ids = append(ids, p.PlayerID)
		names = append(names, p.PlayerName)
		allianceIDs = append(allianceIDs, allianceID)
		rankCodes = append(rankCodes, p.RankCode)
		levels = append(levels, p.Level)
		mights = append(mights, p.Might)
		loots = append(loots, p.Loot)
		honors = append(honors, p.Honor)
	}

	const query = `
		INSERT INTO players (
			id, current_name, current_alliance_id, current_alliance_rank,
			level, might, loot, honor, last_seen_at
		)
		SELECT t.id, t.current_name, t.current_alliance_id, t.current_alliance_rank,
		       t.level, t.might, t.loot, t.honor, NOW()
		FROM UNNEST(
			$1::bigint[], $2::text[], $3::bigint[], $4::smallint[],
			$5::integer[], $6::bigint[], $7::bigint[], $8::bigint[]
		) AS t(id, current_name, current_alliance_id, current_alliance_rank, level, might, loot, honor)
		ON CONFLICT (id)
		DO UPDATE SET
			current_name = EXCLUDED.current_name,
			current_alliance_id = EXCLUDED.current_alliance_id,
			current_alliance_rank = EXCLUDED.current_alliance_rank,
			level = EXCLUDED.level,
			might = EXCLUDED.might,
			loot = EXCLUDED.loot,
			honor = EXCLUDED.honor,
			last_seen_at = NOW(),
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, ids, names, allianceIDs, rankCodes, levels, mights, loots, honors); err != nil {
		return fmt.Errorf("failed to upsert alliance players: %w", err)
	}
	return nil
}

// ClearDepartedPlayers drops alliance membership for players of tracked
// alliances that a completed sync run did not see. Returns the number of
// players cleared.
func (r *PlayerRepository) ClearDepartedPlayers(ctx context.Context, trackedAllianceIDs, seenPlayerIDs []int64) (int64, error) {
	// ANY over an empty array matches nothing, which would clear every
	// tracked player; guard with an impossible id instead.
	if len(seenPlayerIDs) == 0 {
		seenPlayerIDs = []int64{-1}
	}

	const query = `
		UPDATE players
		SET current_alliance_id = NULL, current_alliance_rank = NULL, updated_at = NOW()
		WHERE current_alliance_id = ANY($1::bigint[])
		  AND NOT (id = ANY($2::bigint[]))
	`

	result, err := r.pool.Exec(ctx, query, trackedAllianceIDs, seenPlayerIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to clear departed players: %w", err)
	}
	return result.RowsAffected(), nil
}

// ClaimablePlayers returns one page of players in the given alliance and
// rank that have no active link, ordered by name. Queries one row beyond
// the page size to learn whether a next page exists.
func (r *PlayerRepository) ClaimablePlayers(ctx context.Context, allianceID int64, rankCode, page int) ([]model.ClaimablePlayer, bool, error) {
	if page < 0 {
		page = 0
	}
	offset := page * ClaimablePageSize

	const query = `
		SELECT p.id, p.current_name
		FROM players p
		LEFT JOIN discord_links dl
			ON dl.player_id = p.id
			AND dl.unlinked_at IS NULL
		WHERE p.current_alliance_id = $1
		  AND p.current_alliance_rank = $2
		  AND dl.id IS NULL
		ORDER BY p.current_name ASC
		LIMIT $3
		OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, allianceID, rankCode, ClaimablePageSize+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query claimable players: %w", err)
	}
	defer rows.Close()

	var players []model.ClaimablePlayer
	for rows.Next() {
		var p model.ClaimablePlayer
		if err := rows.Scan(&p.PlayerID, &p.PlayerName); err != nil {
			return nil, false, fmt.Errorf("failed to scan claimable player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating claimable players: %w", err)
	}

	hasNextPage := len(players) > ClaimablePageSize
	if hasNextPage {
		players = players[:ClaimablePageSize]
	}
	return players, hasNextPage, nil
}

// FindByName returns candidates whose current name matches exactly,
// case-insensitively, most recently seen first.
func (r *PlayerRepository) FindByName(ctx context.Context, playerName string) ([]NameMatch, error) {
	const query = `
		SELECT id, current_name, current_alliance_id
		FROM players
		WHERE LOWER(current_name) = LOWER($1)
		ORDER BY last_seen_at DESC NULLS LAST, id DESC
		LIMIT 25
	`

	rows, err := r.pool.Query(ctx, query, playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to find players by name: %w", err)
	}
	defer rows.Close()

	var matches []NameMatch
	for rows.Next() {
		var m NameMatch
		if err := rows.Scan(&m.PlayerID, &m.PlayerName, &m.AllianceID); err != nil {
			return nil, fmt.Errorf("failed to scan player match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player matches: %w", err)
	}
	return matches, nil
}
