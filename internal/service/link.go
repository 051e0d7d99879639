package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/repository"
)

// Resolution statuses for player name lookups.
const (
	ResolutionResolved  = "resolved"
	ResolutionNotFound  = "not_found"
	ResolutionAmbiguous = "ambiguous"
)

// maxResolutionCandidates caps how many alternatives an ambiguous lookup
// reports back.
const maxResolutionCandidates = 5

// PlayerResolution is the outcome of resolving a player name for the link
// commands.
type PlayerResolution struct {
	Status     string
	Player     repository.NameMatch
	Candidates []repository.NameMatch
}

// LinkService manages manual link administration: resolving players by
// name and setting or removing links on leadership's behalf.
type LinkService struct {
	players *repository.PlayerRepository
	links   *repository.LinkRepository
	tracked map[int64]bool
}

// NewLinkService creates a new LinkService instance.
func NewLinkService(players *repository.PlayerRepository, links *repository.LinkRepository, trackedAllianceIDs []int64) *LinkService {
	tracked := make(map[int64]bool, len(trackedAllianceIDs))
	for _, id := range trackedAllianceIDs {
		tracked[id] = true
	}
	return &LinkService{players: players, links: links, tracked: tracked}
}

// ResolvePlayerByName finds the player a name refers to. Matches inside
// tracked alliances win over outsiders; a single tracked match resolves
// even when stale homonyms exist elsewhere. Anything else with multiple
// matches is ambiguous and reported with candidates.
func (s *LinkService) ResolvePlayerByName(ctx context.Context, playerName string) (PlayerResolution, error) {
	matches, err := s.players.FindByName(ctx, playerName)
	if err != nil {
		return PlayerResolution{}, err
	}
	if len(matches) == 0 {
		return PlayerResolution{Status: ResolutionNotFound}, nil
	}

	var tracked []repository.NameMatch
	for _, m := range matches {
		if m.AllianceID != nil && s.tracked[*m.AllianceID] {
			tracked = append(tracked, m)
		}
	}

	if len(tracked) == 1 {
		return PlayerResolution{Status: ResolutionResolved, Player: tracked[0]}, nil
	}
	if len(tracked) > 1 {
		return PlayerResolution{Status: ResolutionAmbiguous, Candidates: capCandidates(tracked)}, nil
	}
	if len(matches) == 1 {
		return PlayerResolution{Status: ResolutionResolved, Player: matches[0]}, nil
	}
	return PlayerResolution{Status: ResolutionAmbiguous, Candidates: capCandidates(matches)}, nil
}

// LinkPlayer associates a player with a Discord user on the actor's behalf.
func (s *LinkService) LinkPlayer(ctx context.Context, playerID int64, targetDiscordUserID, actorID string) error {
	if err := s.links.Upsert(ctx, targetDiscordUserID, playerID, actorID); err != nil {
		return err
	}
	log.Info().
		Int64("player_id", playerID).
		Str("discord_user_id", targetDiscordUserID).
		Str("actor_id", actorID).
		Msg("Linked player to Discord user")
	return nil
}

// UnlinkByPlayer removes every active link to the player and returns the
// Discord users whose roles now need reconciling.
func (s *LinkService) UnlinkByPlayer(ctx context.Context, playerID int64, actorID string) ([]string, error) {
	userIDs, err := s.links.UnlinkByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("player_id", playerID).
		Str("actor_id", actorID).
		Strs("unlinked_users", userIDs).
		Msg("Unlinked player from Discord users")
	return userIDs, nil
}

func capCandidates(matches []repository.NameMatch) []repository.NameMatch {
	if len(matches) > maxResolutionCandidates {
		return matches[:maxResolutionCandidates]
	}
	return matches
}
