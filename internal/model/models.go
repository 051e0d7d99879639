// Package model defines the data models for the alliance verification bot.
package model

import "time"

// Alliance represents a tracked GGE alliance.
type Alliance struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Player represents a GGE player as last seen by the sync process.
// CurrentAllianceID and CurrentAllianceRank are nil for players who have
// left all tracked alliances.
type Player struct {
	ID                  int64      `db:"id"`
	CurrentName         string     `db:"current_name"`
	CurrentAllianceID   *int64     `db:"current_alliance_id"`
	CurrentAllianceRank *int       `db:"current_alliance_rank"`
	Level               *int       `db:"level"`
	Might               *int64     `db:"might"`
	Loot                *int64     `db:"loot"`
	Honor               *int64     `db:"honor"`
	LastSeenAt          *time.Time `db:"last_seen_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// ClaimablePlayer is a player eligible for selection in the verification
// wizard: a member of the requested alliance and rank with no active link.
type ClaimablePlayer struct {
	PlayerID   int64
	PlayerName string
}

// Claim statuses.
const (
	ClaimStatusPending      = "pending"
	ClaimStatusApproved     = "approved"
	ClaimStatusDenied       = "denied"
	ClaimStatusJustVisiting = "just_visiting"
)

// ClaimRequest represents a member's assertion of being a specific player.
// PlayerID is nil for just_visiting records.
type ClaimRequest struct {
	ID            int64      `db:"id"`
	DiscordUserID string     `db:"discord_user_id"`
	PlayerID      *int64     `db:"player_id"`
	Status        string     `db:"status"`
	ReviewedBy    *string    `db:"reviewed_by_discord_user_id"`
	ReviewedAt    *time.Time `db:"reviewed_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// ClaimSubmission is the result of recording a new pending claim.
type ClaimSubmission struct {
	ClaimID       int64
	DiscordUserID string
	PlayerID      int64
	PlayerName    string
}

// ClaimDecision is the result of an approve or deny transition. A nil
// decision from the repository means the claim was no longer pending.
type ClaimDecision struct {
	ClaimID       int64
	DiscordUserID string
	PlayerID      int64
	ReviewerID    string
}

// Link represents the durable association between a Discord user and a
// player. At most one non-unlinked row exists per Discord user.
type Link struct {
	ID            int64      `db:"id"`
	DiscordUserID string     `db:"discord_user_id"`
	PlayerID      int64      `db:"player_id"`
	LinkedBy      string     `db:"linked_by_discord_user_id"`
	UnlinkedAt    *time.Time `db:"unlinked_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// LinkedMemberState is the joined view reconciliation consumes: an active
// link plus the linked player's current alliance membership, if any.
type LinkedMemberState struct {
	DiscordUserID string
	PlayerID      int64
	AllianceID    *int64
	RankCode      *int
}

// Sync run statuses.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncRun records one execution of the membership ingestion job.
type SyncRun struct {
	ID               int64      `db:"id"`
	Status           string     `db:"status"`
	Message          *string    `db:"message"`
	ProcessedPlayers int        `db:"processed_players"`
	ErrorsCount      int        `db:"errors_count"`
	StartedAt        time.Time  `db:"started_at"`
	FinishedAt       *time.Time `db:"finished_at"`
}

// AuditEntry records one privileged command execution.
type AuditEntry struct {
	ID           int64     `db:"id"`
	CommandName  string    `db:"command_name"`
	ActorID      string    `db:"actor_discord_user_id"`
	TargetUserID *string   `db:"target_discord_user_id"`
	TargetPlayer *int64    `db:"target_player_id"`
	Payload      []byte    `db:"payload_json"`
	CreatedAt    time.Time `db:"created_at"`
}

// Alliance rank codes. Lower code means higher rank.
const (
	RankLeader      = 0
	RankDeputy      = 1
	RankWarMarshall = 2
	RankTreasurer   = 3
	RankDiplomat    = 4
	RankRecruiter   = 5
	RankGeneral     = 6
	RankSergeant    = 7
	RankMember      = 8
	RankNovice      = 9
)

// RankNames maps rank codes to display names.
var RankNames = map[int]string{
	RankLeader:      "Leader",
	RankDeputy:      "Deputy",
	RankWarMarshall: "War Marshall",
	RankTreasurer:   "Treasurer",
	RankDiplomat:    "Diplomat",
	RankRecruiter:   "Recruiter",
	RankGeneral:     "General",
	RankSergeant:    "Sergeant",
	RankMember:      "Member",
	RankNovice:      "Novice",
}

// LeadershipRankCodes are the rank codes whose holders count as alliance
// leadership for claim review purposes.
var LeadershipRankCodes = map[int]bool{
	RankLeader:      true,
	RankDeputy:      true,
	RankWarMarshall: true,
	RankTreasurer:   true,
	RankDiplomat:    true,
	RankRecruiter:   true,
}

// IsKnownRank reports whether code maps to a rank tier.
func IsKnownRank(code int) bool {
	_, ok := RankNames[code]
	return ok
}

// Audited command names.
const (
	AuditSyncNow      = "sync.now"
	AuditLinkSet      = "link.set"
	AuditLinkRemove   = "link.remove"
	AuditClaimApprove = "claim.approve"
	AuditClaimDeny    = "claim.deny"
)
