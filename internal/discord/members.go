package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// onGuildMemberAdd restores roles for returning linked members and opens a
// verification thread for everyone else.
func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.GuildID != b.cfg.Discord.GuildID || m.User == nil || m.User.Bot {
		return
	}
	ctx := context.Background()

	state, err := b.linkStates.LinkedState(ctx, m.User.ID)
	if err != nil {
		log.Error().Err(err).Str("discord_user_id", m.User.ID).Msg("Failed to look up link on join")
		return
	}

	if state != nil {
		// A returning linked member gets their roles back without going
		// through verification again.
		diff, err := b.reconciler.ApplyFor(ctx, m.User.ID, state)
		if err != nil {
			log.Error().Err(err).Str("discord_user_id", m.User.ID).Msg("Join reconcile failed")
			return
		}
		log.Info().
			Str("discord_user_id", m.User.ID).
			Int("roles_added", len(diff.Added)).
			Msg("Restored roles for returning linked member")
		b.threads.TechLog(ctx, fmt.Sprintf("Returning member <@%s> re-joined; roles restored", m.User.ID))
		return
	}

	if _, err := b.threads.OpenVerification(ctx, m.User.ID, m.User.Username); err != nil {
		log.Error().Err(err).Str("discord_user_id", m.User.ID).Msg("Failed to open verification thread on join")
		return
	}
	b.threads.TechLog(ctx, fmt.Sprintf("New member <@%s> joined; verification thread opened", m.User.ID))
}

// onGuildMemberRemove cleans up any verification thread the leaver still
// had open. Links are kept; a returning member resumes where they left off.
func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.GuildID != b.cfg.Discord.GuildID || m.User == nil {
		return
	}
	ctx := context.Background()

	if err := b.threads.CloseFor(ctx, m.User.ID); err != nil {
		log.Error().Err(err).Str("discord_user_id", m.User.ID).Msg("Failed to close threads on leave")
	}
	b.threads.TechLog(ctx, fmt.Sprintf("Member <@%s> left", m.User.ID))
}
