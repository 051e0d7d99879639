// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/model"
	"discord-alliance-bot/internal/repository"
)

// VerificationService owns the claim lifecycle: roster pages for the
// wizard, claim submission, leadership decisions and denied-claim garbage
// collection. It satisfies the wizard's RosterLookup and ClaimSink
// interfaces.
type VerificationService struct {
	players       *repository.PlayerRepository
	claims        *repository.ClaimRepository
	expiryDays    int
	retentionDays int
}

// NewVerificationService creates a new VerificationService instance.
func NewVerificationService(
	players *repository.PlayerRepository,
	claims *repository.ClaimRepository,
	expiryDays int,
	retentionDays int,
) *VerificationService {
	return &VerificationService{
		players:       players,
		claims:        claims,
		expiryDays:    expiryDays,
		retentionDays: retentionDays,
	}
}

// ClaimablePlayers returns one page of unlinked players for the given
// alliance and rank.
func (s *VerificationService) ClaimablePlayers(ctx context.Context, allianceID int64, rankCode, page int) ([]model.ClaimablePlayer, bool, error) {
	return s.players.ClaimablePlayers(ctx, allianceID, rankCode, page)
}

// SubmitClaim records a pending claim for the acting member.
func (s *VerificationService) SubmitClaim(ctx context.Context, discordUserID string, playerID int64) (*model.ClaimSubmission, error) {
	sub, err := s.claims.Submit(ctx, discordUserID, playerID, s.expiryDays)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("claim_id", sub.ClaimID).
		Str("discord_user_id", discordUserID).
		Int64("player_id", playerID).
		Msg("Claim recorded")
	return sub, nil
}

// MarkJustVisiting records the visitor exit for the acting member.
func (s *VerificationService) MarkJustVisiting(ctx context.Context, discordUserID string) error {
	return s.claims.MarkJustVisiting(ctx, discordUserID, s.expiryDays)
}

// ApproveClaim approves a pending claim and upserts the link atomically.
// A nil decision means the claim was already decided by another reviewer;
// callers must surface that as an informational message, not an error.
func (s *VerificationService) ApproveClaim(ctx context.Context, claimID int64, reviewerID string) (*model.ClaimDecision, error) {
	decision, err := s.claims.Approve(ctx, claimID, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to approve claim %d: %w", claimID, err)
	}
	if decision != nil {
		log.Info().
			Int64("claim_id", claimID).
			Str("reviewer_id", reviewerID).
			Str("discord_user_id", decision.DiscordUserID).
			Msg("Claim approved")
	}
	return decision, nil
}

// DenyClaim denies a pending claim. A nil decision means it was already
// decided.
func (s *VerificationService) DenyClaim(ctx context.Context, claimID int64, reviewerID string) (*model.ClaimDecision, error) {
	decision, err := s.claims.Deny(ctx, claimID, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to deny claim %d: %w", claimID, err)
	}
	if decision != nil {
		log.Info().
			Int64("claim_id", claimID).
			Str("reviewer_id", reviewerID).
			Str("discord_user_id", decision.DiscordUserID).
			Msg("Claim denied")
	}
	return decision, nil
}

// PurgeExpiredDenied deletes denied claims past their retention window and
// returns the number purged.
func (s *VerificationService) PurgeExpiredDenied(ctx context.Context) (int64, error) {
	purged, err := s.claims.PurgeExpiredDenied(ctx, s.retentionDays)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		log.Info().Int64("purged", purged).Msg("Purged expired denied claims")
	}
	return purged, nil
}
