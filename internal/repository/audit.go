package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository records privileged command executions.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository instance.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// AuditTarget optionally names who or what a command acted on.
type AuditTarget struct {
	DiscordUserID *string
	PlayerID      *int64
	Payload       map[string]any
}

// Record writes one audit row.
func (r *AuditRepository) Record(ctx context.Context, commandName, actorID string, target AuditTarget) error {
	payload := target.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	const query = `
		INSERT INTO command_audit (
			command_name, actor_discord_user_id, target_discord_user_id, target_player_id, payload_json
		)
		VALUES ($1, $2, $3, $4, $5::jsonb)
	`

	if _, err := r.pool.Exec(ctx, query, commandName, actorID, target.DiscordUserID, target.PlayerID, payloadJSON); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
