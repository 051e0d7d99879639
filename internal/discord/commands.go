package discord

import "github.com/bwmarrin/discordgo"

// commandDefinitions returns the guild slash commands. All of them are
// leadership-only; Discord-side default permissions are left open and the
// role gate is enforced in the handler so the leadership set follows config
// without re-registering commands.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "sync",
			Description: "Alliance roster synchronization",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "now",
					Description: "Run a full roster sync immediately",
				},
			},
		},
		{
			Name:        "link",
			Description: "Manage player-to-member links",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Link a player to a Discord member",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "player_name",
							Description: "In-game player name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Discord member to link",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a player's link",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "player_name",
							Description: "In-game player name",
							Required:    true,
						},
					},
				},
			},
		},
	}
}
