package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/model"
	"discord-alliance-bot/internal/repository"
	"discord-alliance-bot/internal/service"
	"discord-alliance-bot/internal/verify"
)

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	// discordgo does not recover handler panics; an uncaught one takes the
	// whole process down with the interaction unanswered.
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("interaction_id", i.ID).
				Str("interaction", interactionLabel(i)).
				Str("user_id", interactionUserID(i)).
				Msg("Recovered from panic in interaction handler")
			b.respondEphemeral(i, "Something went wrong; try again.")
		}
	}()

	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	}
}

// interactionLabel names the command or component for log correlation.
func interactionLabel(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	}
	return ""
}

// handleCommand dispatches the leadership slash commands.
func (b *Bot) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	actorID := interactionUserID(i)

	if !b.isLeadership(i) {
		b.respondEphemeral(i, "Only leadership can use this command.")
		return
	}
	if len(data.Options) == 0 {
		b.respondEphemeral(i, "Unknown subcommand.")
		return
	}
	sub := data.Options[0]

	switch {
	case data.Name == "sync" && sub.Name == "now":
		b.handleSyncNow(ctx, i, actorID)
	case data.Name == "link" && sub.Name == "set":
		b.handleLinkSet(ctx, i, actorID, sub)
	case data.Name == "link" && sub.Name == "remove":
		b.handleLinkRemove(ctx, i, actorID, sub)
	default:
		b.respondEphemeral(i, "Unknown subcommand.")
	}
}

// handleSyncNow runs a full roster sync on demand. The sync can exceed the
// three-second interaction deadline, so the response is deferred and the
// result arrives as a followup.
func (b *Bot) handleSyncNow(ctx context.Context, i *discordgo.InteractionCreate, actorID string) {
	b.recordAudit(ctx, model.AuditSyncNow, actorID, repository.AuditTarget{})
	b.deferEphemeral(i)

	if err := b.sync.RunFullSync(ctx, "manual"); err != nil {
		log.Error().Err(err).Str("actor_id", actorID).Msg("Manual sync failed")
		b.threads.TechLog(ctx, fmt.Sprintf("Manual sync by <@%s> failed: %v", actorID, err))
		b.followupEphemeral(i, "Sync failed; check the logs.")
		return
	}
	b.threads.TechLog(ctx, fmt.Sprintf("Manual sync by <@%s> completed", actorID))
	b.followupEphemeral(i, "Sync complete.")
}

// handleLinkSet resolves a player name and links it to the given member.
func (b *Bot) handleLinkSet(ctx context.Context, i *discordgo.InteractionCreate, actorID string, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(sub.Options)
	playerName := opts["player_name"].StringValue()
	target := opts["user"].UserValue(b.session)
	if target == nil {
		b.respondEphemeral(i, "Could not resolve the target member.")
		return
	}

	resolution, err := b.links.ResolvePlayerByName(ctx, playerName)
	if err != nil {
		log.Error().Err(err).Str("player_name", playerName).Msg("Player resolution failed")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}
	if msg, ok := resolutionProblem(playerName, resolution); ok {
		b.respondEphemeral(i, msg)
		return
	}

	player := resolution.Player
	if err := b.links.LinkPlayer(ctx, player.PlayerID, target.ID, actorID); err != nil {
		log.Error().Err(err).
			Int64("player_id", player.PlayerID).
			Str("target_id", target.ID).
			Msg("Failed to set link")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}

	b.recordAudit(ctx, model.AuditLinkSet, actorID, repository.AuditTarget{
		DiscordUserID: &target.ID,
		PlayerID:      &player.PlayerID,
		Payload:       map[string]any{"player_name": player.PlayerName},
	})

	if _, err := b.reconciler.ReconcileMember(ctx, target.ID); err != nil {
		log.Error().Err(err).Str("discord_user_id", target.ID).Msg("Post-link reconcile failed")
	}
	if err := b.threads.CloseFor(ctx, target.ID); err != nil {
		log.Warn().Err(err).Str("discord_user_id", target.ID).Msg("Failed to close verification threads after manual link")
	}

	b.threads.TechLog(ctx, fmt.Sprintf("Link set: %s -> <@%s> by <@%s>", player.PlayerName, target.ID, actorID))
	b.respondEphemeral(i, fmt.Sprintf("Linked %s to <@%s>.", player.PlayerName, target.ID))
}

// handleLinkRemove unlinks whoever currently holds the named player.
func (b *Bot) handleLinkRemove(ctx context.Context, i *discordgo.InteractionCreate, actorID string, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(sub.Options)
	playerName := opts["player_name"].StringValue()

	resolution, err := b.links.ResolvePlayerByName(ctx, playerName)
	if err != nil {
		log.Error().Err(err).Str("player_name", playerName).Msg("Player resolution failed")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}
	if msg, ok := resolutionProblem(playerName, resolution); ok {
		b.respondEphemeral(i, msg)
		return
	}

	player := resolution.Player
	unlinked, err := b.links.UnlinkByPlayer(ctx, player.PlayerID, actorID)
	if err != nil {
		log.Error().Err(err).Int64("player_id", player.PlayerID).Msg("Failed to remove link")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}
	if len(unlinked) == 0 {
		b.respondEphemeral(i, fmt.Sprintf("%s is not linked to anyone.", player.PlayerName))
		return
	}

	b.recordAudit(ctx, model.AuditLinkRemove, actorID, repository.AuditTarget{
		PlayerID: &player.PlayerID,
		Payload:  map[string]any{"player_name": player.PlayerName, "unlinked": unlinked},
	})

	for _, userID := range unlinked {
		if _, err := b.reconciler.ReconcileMember(ctx, userID); err != nil {
			log.Error().Err(err).Str("discord_user_id", userID).Msg("Post-unlink reconcile failed")
		}
	}

	b.threads.TechLog(ctx, fmt.Sprintf("Link removed: %s by <@%s>", player.PlayerName, actorID))
	b.respondEphemeral(i, fmt.Sprintf("Unlinked %s.", player.PlayerName))
}

// resolutionProblem turns a non-resolved lookup into a user-facing message.
func resolutionProblem(playerName string, res service.PlayerResolution) (string, bool) {
	switch res.Status {
	case service.ResolutionNotFound:
		return fmt.Sprintf("No player named %q found.", playerName), true
	case service.ResolutionAmbiguous:
		names := make([]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			names = append(names, fmt.Sprintf("%s (%d)", c.PlayerName, c.PlayerID))
		}
		return fmt.Sprintf("Multiple players match %q: %s. Narrow it down.", playerName, strings.Join(names, ", ")), true
	}
	return "", false
}

// handleComponent routes a button or select interaction through the verify
// router and executes the resulting command.
func (b *Bot) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	actorID := interactionUserID(i)

	controlType := verify.ControlButton
	if data.ComponentType == discordgo.SelectMenuComponent {
		controlType = verify.ControlSelect
	}

	route := verify.RouteInteraction(verify.RouteInput{
		CustomID:             data.CustomID,
		ControlType:          controlType,
		ActorID:              actorID,
		ChannelID:            i.ChannelID,
		LeadershipChannelID:  b.cfg.Discord.LeadershipChannelID,
		ActorIsLeadership:    b.isLeadership(i),
		IsVerificationThread: b.isVerificationThread(i.ChannelID),
		SelectedValues:       data.Values,
	})

	switch route.Kind {
	case verify.RouteIgnore:
		b.ackSilently(i)
	case verify.RouteAuthError:
		b.respondEphemeral(i, authErrorMessage(route.Reason))
	case verify.RouteClaimApprove, verify.RouteClaimDeny:
		b.handleClaimDecision(ctx, i, route, actorID)
	default:
		b.handleWizardStep(ctx, i, route, actorID)
	}
}

// handleWizardStep advances the verification wizard one step and maps the
// outcome onto Discord responses.
func (b *Bot) handleWizardStep(ctx context.Context, i *discordgo.InteractionCreate, route verify.Route, actorID string) {
	outcome, err := b.wizard.Advance(ctx, route, b.isOwnThread(i.ChannelID, actorID))
	if err != nil {
		log.Error().Err(err).Str("discord_user_id", actorID).Msg("Wizard step failed")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}

	switch outcome.Kind {
	case verify.OutcomeIgnored:
		b.ackSilently(i)

	case verify.OutcomeRender:
		b.updateMessage(i, b.renderer.WizardContent(outcome.State), b.renderer.WizardComponents(outcome.State))

	case verify.OutcomeClaimSubmitted:
		b.updateMessage(i,
			fmt.Sprintf("Claim for %s submitted. Leadership will review it shortly.", outcome.Claim.PlayerName),
			[]discordgo.MessageComponent{})
		if err := b.threads.PostClaimReview(ctx, outcome.Claim, i.ChannelID); err != nil {
			log.Error().Err(err).Int64("claim_id", outcome.Claim.ClaimID).Msg("Failed to post claim review")
		}
		b.threads.TechLog(ctx, fmt.Sprintf("Claim %d submitted: %s by <@%s>",
			outcome.Claim.ClaimID, outcome.Claim.PlayerName, outcome.Claim.DiscordUserID))

	case verify.OutcomeVisitorExit:
		if _, err := b.reconciler.ReconcileMember(ctx, actorID); err != nil {
			log.Error().Err(err).Str("discord_user_id", actorID).Msg("Visitor reconcile failed")
		}
		b.updateMessage(i, "Welcome, visitor! Enjoy your stay.", []discordgo.MessageComponent{})
		if err := b.threads.Close(ctx, i.ChannelID); err != nil {
			log.Warn().Err(err).Str("thread_id", i.ChannelID).Msg("Failed to close thread after visitor exit")
		}
		b.threads.TechLog(ctx, fmt.Sprintf("Visitor exit: <@%s>", actorID))
	}
}

// handleClaimDecision applies an approve or deny, updates the review
// message and closes the member's verification thread. The conditional
// status transition in the store makes concurrent decisions safe; the loser
// sees a nil decision.
func (b *Bot) handleClaimDecision(ctx context.Context, i *discordgo.InteractionCreate, route verify.Route, actorID string) {
	var (
		decision *model.ClaimDecision
		err      error
		verb     string
		auditKey string
	)
	if route.Kind == verify.RouteClaimApprove {
		decision, err = b.verification.ApproveClaim(ctx, route.ClaimID, actorID)
		verb, auditKey = "approved", model.AuditClaimApprove
	} else {
		decision, err = b.verification.DenyClaim(ctx, route.ClaimID, actorID)
		verb, auditKey = "denied", model.AuditClaimDeny
	}
	if err != nil {
		log.Error().Err(err).Int64("claim_id", route.ClaimID).Msg("Claim decision failed")
		b.respondEphemeral(i, "Something went wrong; try again.")
		return
	}
	if decision == nil {
		b.respondEphemeral(i, "Claim is no longer pending.")
		return
	}

	b.recordAudit(ctx, auditKey, actorID, repository.AuditTarget{
		DiscordUserID: &decision.DiscordUserID,
		PlayerID:      &decision.PlayerID,
		Payload:       map[string]any{"claim_id": decision.ClaimID},
	})

	if route.Kind == verify.RouteClaimApprove {
		if _, err := b.reconciler.ReconcileMember(ctx, decision.DiscordUserID); err != nil {
			log.Error().Err(err).Str("discord_user_id", decision.DiscordUserID).Msg("Post-approval reconcile failed")
		}
	}

	b.updateMessage(i,
		fmt.Sprintf("Claim %d %s by <@%s>.", decision.ClaimID, verb, actorID),
		[]discordgo.MessageComponent{})

	if err := b.threads.Close(ctx, route.ThreadID); err != nil {
		log.Warn().Err(err).Str("thread_id", route.ThreadID).Msg("Failed to close thread after decision")
	}
	b.threads.TechLog(ctx, fmt.Sprintf("Claim %d %s by <@%s> (member <@%s>)",
		decision.ClaimID, verb, actorID, decision.DiscordUserID))
}

func authErrorMessage(reason verify.AuthReason) string {
	switch reason {
	case verify.ReasonNotOwner:
		return "This verification flow belongs to someone else."
	case verify.ReasonNotLeadership:
		return "Only leadership can decide claims."
	case verify.ReasonWrongChannel:
		return "Claim decisions are only accepted in the leadership channel."
	case verify.ReasonSelectAllianceFirst:
		return "Select your alliance first."
	default:
		return "That control is no longer valid."
	}
}

func (b *Bot) recordAudit(ctx context.Context, commandName, actorID string, target repository.AuditTarget) {
	if err := b.audit.Record(ctx, commandName, actorID, target); err != nil {
		log.Error().Err(err).Str("command", commandName).Msg("Failed to record audit entry")
	}
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to respond to interaction")
	}
}

func (b *Bot) deferEphemeral(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to defer interaction response")
	}
}

func (b *Bot) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send followup message")
	}
}

// ackSilently acknowledges a component interaction without visibly
// replying. Unacknowledged interactions render a client-side failure even
// when dropping them is the intended behavior.
func (b *Bot) ackSilently(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to acknowledge interaction")
	}
}

// updateMessage edits the message the component lives on in place.
func (b *Bot) updateMessage(i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to update interaction message")
	}
}
