package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/config"
	"discord-alliance-bot/internal/repository"
	"discord-alliance-bot/internal/roles"
	"discord-alliance-bot/internal/service"
	"discord-alliance-bot/internal/verify"
)

// Bot wraps the gateway session with application dependencies.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	verification *service.VerificationService
	links        *service.LinkService
	sync         *service.SyncService
	reconciler   *roles.Reconciler
	linkStates   *repository.LinkRepository
	audit        *repository.AuditRepository

	wizard   *verify.Wizard
	renderer *Renderer
	threads  *Threads

	leadershipRoles map[string]bool
}

// Dependencies holds everything the bot handlers need. The role
// reconciler is built inside New because its mutator needs the live
// session.
type Dependencies struct {
	Config         *config.Config
	Verification   *service.VerificationService
	Links          *service.LinkService
	Sync           *service.SyncService
	RoleVocabulary roles.Vocabulary
	LinkStates     *repository.LinkRepository
	Audit          *repository.AuditRepository
}

// New creates a new Bot instance with the given dependencies. The session
// is configured but not yet connected; call Start to open the gateway.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + deps.Config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	cfg := deps.Config
	alliances := make([]AllianceOption, 0, len(cfg.Sync.AllianceIDs))
	for _, id := range cfg.Sync.AllianceIDs {
		alliances = append(alliances, AllianceOption{ID: id, Label: cfg.AllianceLabel(id)})
	}

	leadership := cfg.LeadershipRoleIDs()

	renderer := NewRenderer(alliances)
	mutator := NewGuildRoles(session, cfg.Discord.GuildID)
	b := &Bot{
		session:         session,
		cfg:             cfg,
		verification:    deps.Verification,
		links:           deps.Links,
		sync:            deps.Sync,
		reconciler:      roles.NewReconciler(deps.RoleVocabulary, mutator, deps.LinkStates),
		linkStates:      deps.LinkStates,
		audit:           deps.Audit,
		wizard:          verify.NewWizard(deps.Verification, deps.Verification),
		renderer:        renderer,
		threads:         NewThreads(session, cfg, renderer),
		leadershipRoles: leadership,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onGuildMemberAdd)
	session.AddHandler(b.onGuildMemberRemove)

	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID,
		b.cfg.Discord.GuildID,
		commandDefinitions(),
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	log.Info().Str("guild_id", b.cfg.Discord.GuildID).Msg("Bot started")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	log.Info().Msg("Stopping bot")
	return b.session.Close()
}

// Reconciler exposes the role reconciler for callers outside the
// interaction path, such as the post-sync sweep.
func (b *Bot) Reconciler() *roles.Reconciler {
	return b.reconciler
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Gateway session ready")
}

// interactionUserID returns the acting user's id for both guild and DM
// interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// isLeadership reports whether the interaction's member carries any
// leadership rank role.
func (b *Bot) isLeadership(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	for _, roleID := range i.Member.Roles {
		if b.leadershipRoles[roleID] {
			return true
		}
	}
	return false
}

// channel resolves a channel through the state cache, falling back to the
// REST API for threads the cache has not seen yet.
func (b *Bot) channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := b.session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := b.session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return ch, nil
}

// isVerificationThread reports whether the channel is a thread under the
// verification parent channel.
func (b *Bot) isVerificationThread(channelID string) bool {
	ch, err := b.channel(channelID)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to resolve interaction channel")
		return false
	}
	return ch.IsThread() && ch.ParentID == b.cfg.Discord.VerificationParentChannelID
}

// isOwnThread reports whether the channel is the verification thread issued
// to the given user.
func (b *Bot) isOwnThread(channelID, userID string) bool {
	ch, err := b.channel(channelID)
	if err != nil {
		return false
	}
	if !ch.IsThread() || ch.ParentID != b.cfg.Discord.VerificationParentChannelID {
		return false
	}
	return ThreadOwnerID(ch.Name) == userID
}
