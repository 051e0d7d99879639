package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// GuildRoles applies role changes through the guild REST API. It satisfies
// the reconciler's mutator contract; one API call per role is how Discord
// models role changes, so partial application is possible and callers treat
// per-role errors as retryable on the next reconcile.
type GuildRoles struct {
	session *discordgo.Session
	guildID string
}

// NewGuildRoles creates a new GuildRoles instance.
func NewGuildRoles(session *discordgo.Session, guildID string) *GuildRoles {
	return &GuildRoles{session: session, guildID: guildID}
}

// MemberRoles fetches the member's current role ids. A member who already
// left the guild reports found=false rather than an error.
func (g *GuildRoles) MemberRoles(ctx context.Context, discordUserID string) ([]string, bool, error) {
	member, err := g.session.GuildMember(g.guildID, discordUserID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to fetch guild member %s: %w", discordUserID, err)
	}
	return member.Roles, true, nil
}

// AddRoles grants each role in turn.
func (g *GuildRoles) AddRoles(ctx context.Context, discordUserID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		if err := g.session.GuildMemberRoleAdd(g.guildID, discordUserID, roleID, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to add role %s to %s: %w", roleID, discordUserID, err)
		}
	}
	return nil
}

// RemoveRoles revokes each role in turn.
func (g *GuildRoles) RemoveRoles(ctx context.Context, discordUserID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		if err := g.session.GuildMemberRoleRemove(g.guildID, discordUserID, roleID, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to remove role %s from %s: %w", roleID, discordUserID, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
