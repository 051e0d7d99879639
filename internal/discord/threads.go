package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/config"
	"discord-alliance-bot/internal/model"
	"discord-alliance-bot/internal/verify"
)

// Threads manages the private verification threads and the leadership and
// tech-admin channel posts.
type Threads struct {
	session  *discordgo.Session
	cfg      *config.Config
	renderer *Renderer
}

// NewThreads creates a new Threads instance.
func NewThreads(session *discordgo.Session, cfg *config.Config, renderer *Renderer) *Threads {
	return &Threads{session: session, cfg: cfg, renderer: renderer}
}

// OpenVerification creates a private thread for a joining member and posts
// the step-1 wizard message into it. Returns the thread id.
func (t *Threads) OpenVerification(ctx context.Context, userID, username string) (string, error) {
	thread, err := t.session.ThreadStartComplex(
		t.cfg.Discord.VerificationParentChannelID,
		&discordgo.ThreadStart{
			Name:                VerificationThreadName(username, userID),
			Type:                discordgo.ChannelTypeGuildPrivateThread,
			AutoArchiveDuration: 10080,
			Invitable:           false,
		},
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create verification thread: %w", err)
	}

	if err := t.session.ThreadMemberAdd(thread.ID, userID, discordgo.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("failed to add member to thread: %w", err)
	}

	state := verify.NewWizardState(userID)
	_, err = t.session.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
		Content:    t.renderer.WizardContent(state),
		Components: t.renderer.WizardComponents(state),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to post wizard message: %w", err)
	}

	log.Info().
		Str("discord_user_id", userID).
		Str("thread_id", thread.ID).
		Msg("Opened verification thread")
	return thread.ID, nil
}

// Close deletes a verification thread by id. A thread that is already gone
// is not an error.
func (t *Threads) Close(ctx context.Context, threadID string) error {
	if _, err := t.session.ChannelDelete(threadID, discordgo.WithContext(ctx)); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

// CloseFor deletes every active verification thread issued to the given
// user. Used when a member leaves mid-verification.
func (t *Threads) CloseFor(ctx context.Context, userID string) error {
	active, err := t.session.GuildThreadsActive(t.cfg.Discord.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to list active threads: %w", err)
	}

	for _, thread := range active.Threads {
		if thread.ParentID != t.cfg.Discord.VerificationParentChannelID {
			continue
		}
		if ThreadOwnerID(thread.Name) != userID {
			continue
		}
		if err := t.Close(ctx, thread.ID); err != nil {
			log.Error().Err(err).
				Str("thread_id", thread.ID).
				Str("discord_user_id", userID).
				Msg("Failed to close verification thread")
		}
	}
	return nil
}

// PostClaimReview posts the approve/deny message for a submitted claim into
// the leadership channel.
func (t *Threads) PostClaimReview(ctx context.Context, claim *model.ClaimSubmission, threadID string) error {
	_, err := t.session.ChannelMessageSendComplex(t.cfg.Discord.LeadershipChannelID, &discordgo.MessageSend{
		Content:    ClaimReviewContent(claim),
		Components: ClaimReviewComponents(claim.ClaimID, threadID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post claim review: %w", err)
	}
	return nil
}

// TechLog sends a line to the tech-admin log channel. Failures are logged
// and swallowed; the log channel is informational only.
func (t *Threads) TechLog(ctx context.Context, message string) {
	channelID := t.cfg.Discord.TechAdminLogChannelID
	if channelID == "" {
		return
	}
	if _, err := t.session.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to post tech-admin log message")
	}
}
