package verify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/model"
)

// RosterLookup supplies one fresh page of claimable players. The wizard
// holds no cache; every step re-queries so two members mid-wizard never see
// each other's stale data.
type RosterLookup interface {
	ClaimablePlayers(ctx context.Context, allianceID int64, rankCode, page int) ([]model.ClaimablePlayer, bool, error)
}

// ClaimSink records wizard outcomes.
type ClaimSink interface {
	SubmitClaim(ctx context.Context, discordUserID string, playerID int64) (*model.ClaimSubmission, error)
	MarkJustVisiting(ctx context.Context, discordUserID string) error
}

// WizardState is the ephemeral wizard state reconstructed from one decoded
// token plus at most one roster query. It is never persisted; the next
// render embeds it back into fresh tokens.
type WizardState struct {
	OwnerID     string
	AllianceID  int64 // 0 while no alliance is chosen
	RankCode    int   // UnsetRank while no rank is chosen
	Page        int
	Players     []model.ClaimablePlayer
	HasNextPage bool
}

// Step derives the wizard step from which fields are set. The step is
// never stored anywhere else.
func (s WizardState) Step() int {
	if s.AllianceID == 0 {
		return 1
	}
	if s.RankCode == UnsetRank {
		return 2
	}
	return 3
}

// NewWizardState returns the step-1 state for a fresh verification thread.
func NewWizardState(ownerID string) WizardState {
	return WizardState{OwnerID: ownerID, RankCode: UnsetRank}
}

// NextPage applies a page direction with a floor of zero.
func NextPage(direction string, page int) int {
	if direction == DirectionNext {
		return page + 1
	}
	if page <= 0 {
		return 0
	}
	return page - 1
}

// OutcomeKind enumerates what the caller must do after a wizard step.
type OutcomeKind int

// Step outcomes. OutcomeIgnored covers wizard routes that arrived outside a
// live thread and must be dropped without a reply.
const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeRender
	OutcomeClaimSubmitted
	OutcomeVisitorExit
)

// StepOutcome is the wizard's instruction to the presentation layer: either
// re-render the given state, or close out with a submitted claim or a
// visitor exit.
type StepOutcome struct {
	Kind  OutcomeKind
	State WizardState
	Claim *model.ClaimSubmission
}

// Wizard drives the alliance -> rank -> player selection flow. It is
// stateless; each Advance call works entirely from the route's decoded
// fields.
type Wizard struct {
	roster RosterLookup
	claims ClaimSink
}

// NewWizard creates a new Wizard instance.
func NewWizard(roster RosterLookup, claims ClaimSink) *Wizard {
	return &Wizard{roster: roster, claims: claims}
}

// Advance executes one wizard route. inOwnThread reports whether the
// interaction happened inside a live verification thread scoped to the
// owner; the terminal steps re-check it beyond the router's own scoping.
func (w *Wizard) Advance(ctx context.Context, route Route, inOwnThread bool) (StepOutcome, error) {
	switch route.Kind {
	case RouteAlliance:
		// Changing alliance invalidates any downstream rank or page; the
		// fresh state carries only the fields present in this token.
		state := NewWizardState(route.OwnerID)
		state.AllianceID = route.AllianceID
		return StepOutcome{Kind: OutcomeRender, State: state}, nil

	case RouteRank:
		return w.renderRoster(ctx, route.OwnerID, route.AllianceID, route.RankCode, 0)

	case RoutePage:
		page := NextPage(route.Direction, route.Page)
		return w.renderRoster(ctx, route.OwnerID, route.AllianceID, route.RankCode, page)

	case RouteMember:
		if !inOwnThread {
			return StepOutcome{Kind: OutcomeIgnored}, nil
		}
		claim, err := w.claims.SubmitClaim(ctx, route.OwnerID, route.PlayerID)
		if err != nil {
			return StepOutcome{}, err
		}
		log.Info().
			Int64("claim_id", claim.ClaimID).
			Str("discord_user_id", claim.DiscordUserID).
			Int64("player_id", claim.PlayerID).
			Msg("Claim submitted")
		return StepOutcome{Kind: OutcomeClaimSubmitted, Claim: claim}, nil

	case RouteVisitor:
		if !inOwnThread {
			return StepOutcome{Kind: OutcomeIgnored}, nil
		}
		if err := w.claims.MarkJustVisiting(ctx, route.OwnerID); err != nil {
			return StepOutcome{}, err
		}
		log.Info().Str("discord_user_id", route.OwnerID).Msg("Marked user as just visiting")
		return StepOutcome{Kind: OutcomeVisitorExit}, nil
	}

	return StepOutcome{}, fmt.Errorf("route kind %d is not a wizard step", route.Kind)
}

// renderRoster queries one roster page and builds the step-3 render state.
func (w *Wizard) renderRoster(ctx context.Context, ownerID string, allianceID int64, rankCode, page int) (StepOutcome, error) {
	players, hasNext, err := w.roster.ClaimablePlayers(ctx, allianceID, rankCode, page)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("failed to query claimable players: %w", err)
	}
	return StepOutcome{
		Kind: OutcomeRender,
		State: WizardState{
			OwnerID:     ownerID,
			AllianceID:  allianceID,
			RankCode:    rankCode,
			Page:        page,
			Players:     players,
			HasNextPage: hasNext,
		},
	}, nil
}
