package discord

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport answers every REST call with an empty 200 so interaction
// responses can be counted without touching the network.
type stubTransport struct {
	calls int
}

func (t *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte("{}"))),
		Header:     make(http.Header),
	}, nil
}

func newTestBot(t *testing.T) (*Bot, *stubTransport) {
	t.Helper()
	session, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	transport := &stubTransport{}
	session.Client = &http.Client{Transport: transport}
	return &Bot{
		session:         session,
		leadershipRoles: map[string]bool{"role-leader": true},
	}, transport
}

// A slash command can arrive without its required options when the guild's
// command registration is stale. The resulting handler panic must be
// contained: the process stays up and the actor still gets a reply.
func TestOnInteractionCreate_RecoversHandlerPanic(t *testing.T) {
	bot, transport := newTestBot(t)

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:   "interaction-1",
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "link",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "set", Type: discordgo.ApplicationCommandOptionSubCommand},
			},
		},
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: "999000000000000999"},
			Roles: []string{"role-leader"},
		},
	}}

	require.NotPanics(t, func() { bot.onInteractionCreate(nil, i) })
	assert.Equal(t, 1, transport.calls, "actor should receive the apology response")
}

func TestInteractionLabel(t *testing.T) {
	command := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: "sync"},
	}}
	assert.Equal(t, "sync", interactionLabel(command))

	component := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: "verify_visitor_123"},
	}}
	assert.Equal(t, "verify_visitor_123", interactionLabel(component))
}
