package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/gge"
	"discord-alliance-bot/internal/repository"
)

// AllianceSource supplies fresh alliance rosters, normally the tracker API
// client.
type AllianceSource interface {
	AllianceByID(ctx context.Context, allianceID int64) (*gge.AllianceResponse, error)
}

// SyncService pulls authoritative membership data for every tracked
// alliance into the players table and clears membership for players that
// disappeared from tracked scope. Each run is recorded in sync_runs.
type SyncService struct {
	players     *repository.PlayerRepository
	runs        *repository.SyncRunRepository
	source      AllianceSource
	allianceIDs []int64

	// afterSync runs after a successful sync, normally the
	// population-wide role reconciliation.
	afterSync func(ctx context.Context) error
}

// NewSyncService creates a new SyncService instance.
func NewSyncService(
	players *repository.PlayerRepository,
	runs *repository.SyncRunRepository,
	source AllianceSource,
	allianceIDs []int64,
	afterSync func(ctx context.Context) error,
) *SyncService {
	return &SyncService{
		players:     players,
		runs:        runs,
		source:      source,
		allianceIDs: allianceIDs,
		afterSync:   afterSync,
	}
}

// RunFullSync ingests every tracked alliance. trigger is "scheduled" or
// "manual" and only affects the run record.
func (s *SyncService) RunFullSync(ctx context.Context, trigger string) error {
	syncRunID, err := s.runs.Start(ctx, fmt.Sprintf("%s sync started", trigger))
	if err != nil {
		return err
	}
	log.Info().Int64("sync_run_id", syncRunID).Str("trigger", trigger).Msg("Sync started")

	processed, err := s.ingestAlliances(ctx)
	if err != nil {
		if failErr := s.runs.Fail(ctx, syncRunID, err.Error()); failErr != nil {
			log.Error().Err(failErr).Int64("sync_run_id", syncRunID).Msg("Failed to record sync failure")
		}
		log.Error().Err(err).Int64("sync_run_id", syncRunID).Msg("Sync failed")
		return err
	}

	if s.afterSync != nil {
		if err := s.afterSync(ctx); err != nil {
			log.Error().Err(err).Int64("sync_run_id", syncRunID).Msg("Post-sync reconciliation failed")
		}
	}

	if err := s.runs.Complete(ctx, syncRunID, processed); err != nil {
		return err
	}
	log.Info().Int64("sync_run_id", syncRunID).Int("processed_players", processed).Msg("Sync completed")
	return nil
}

// ingestAlliances fetches and upserts every tracked roster, then clears
// membership for tracked-alliance players the run did not see.
func (s *SyncService) ingestAlliances(ctx context.Context) (int, error) {
	processed := 0
	var seenPlayerIDs []int64

	for _, allianceID := range s.allianceIDs {
		alliance, err := s.source.AllianceByID(ctx, allianceID)
		if err != nil {
			return processed, fmt.Errorf("failed to fetch alliance %d: %w", allianceID, err)
		}

		name := alliance.AllianceName
		if name == "" {
			name = fmt.Sprintf("Alliance %d", allianceID)
		}
		if err := s.players.UpsertAlliance(ctx, allianceID, name); err != nil {
			return processed, err
		}

		upserts := make([]repository.PlayerUpsert, 0, len(alliance.Players))
		for _, p := range alliance.Players {
			if p.PlayerID <= 0 {
				continue
			}
			seenPlayerIDs = append(seenPlayerIDs, p.PlayerID)
			upserts = append(upserts, repository.PlayerUpsert{
				PlayerID:   p.PlayerID,
				PlayerName: p.PlayerName,
				RankCode:   p.AllianceRank,
				Level:      p.Level,
				Might:      p.Might,
				Loot:       p.Loot,
				Honor:      p.Honor,
			})
		}

		if err := s.players.UpsertAlliancePlayers(ctx, allianceID, upserts); err != nil {
			return processed, err
		}
		processed += len(upserts)
	}

	cleared, err := s.players.ClearDepartedPlayers(ctx, s.allianceIDs, seenPlayerIDs)
	if err != nil {
		return processed, err
	}
	if cleared > 0 {
		log.Info().Int64("cleared", cleared).Msg("Cleared membership for departed players")
	}

	return processed, nil
}
