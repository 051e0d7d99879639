// Package discord adapts the verification core to the Discord gateway:
// session management, component rendering, threads and the interaction
// dispatch.
package discord

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"discord-alliance-bot/internal/model"
	"discord-alliance-bot/internal/verify"
)

// AllianceOption is one selectable alliance in the wizard's first step.
type AllianceOption struct {
	ID    int64
	Label string
}

// Renderer builds the wizard message bodies and component sets. It holds
// only static vocabulary; all per-interaction state arrives in the
// WizardState.
type Renderer struct {
	alliances []AllianceOption
}

// NewRenderer creates a new Renderer instance.
func NewRenderer(alliances []AllianceOption) *Renderer {
	return &Renderer{alliances: alliances}
}

// WizardContent builds the verification message text for a wizard state.
func (r *Renderer) WizardContent(state verify.WizardState) string {
	var status string
	allianceLabel := r.allianceLabel(state.AllianceID)
	rankLabel := ""
	if state.RankCode != verify.UnsetRank {
		rankLabel = model.RankNames[state.RankCode]
	}

	switch {
	case allianceLabel != "" && rankLabel != "":
		status = fmt.Sprintf("\n\nSelected: %s • %s", allianceLabel, rankLabel)
	case allianceLabel != "":
		status = fmt.Sprintf("\n\nSelected alliance: %s", allianceLabel)
	}

	pageNote := ""
	if allianceLabel != "" && rankLabel != "" && len(state.Players) > 0 {
		pageNote = fmt.Sprintf("\nPlayers shown: %d", len(state.Players))
	}

	return "Hey there, friend. Let's get you ID'd and on your way.\n" +
		"Select your alliance below then your rank and player." + status + pageNote + "\n" +
		"\n" +
		"Leadership will be by shortly to verify."
}

// WizardComponents builds the five control rows for a wizard state. Every
// control id embeds the owner and the state needed to route the next click
// with no server-held session.
func (r *Renderer) WizardComponents(state verify.WizardState) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		r.allianceRow(state),
		r.rankRow(state),
		r.memberRow(state),
		r.pagingRow(state),
		visitorRow(state.OwnerID),
	}
}

func (r *Renderer) allianceRow(state verify.WizardState) discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(r.alliances))
	for _, a := range r.alliances {
		options = append(options, discordgo.SelectMenuOption{
			Label:   a.Label,
			Value:   strconv.FormatInt(a.ID, 10),
			Default: state.AllianceID == a.ID,
		})
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    verify.AllianceToken(state.OwnerID),
			Placeholder: "Select alliance",
			Options:     options,
		},
	}}
}

func (r *Renderer) rankRow(state verify.WizardState) discordgo.MessageComponent {
	codes := make([]int, 0, len(model.RankNames))
	for code := range model.RankNames {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	options := make([]discordgo.SelectMenuOption, 0, len(codes))
	for _, code := range codes {
		options = append(options, discordgo.SelectMenuOption{
			Label:   model.RankNames[code],
			Value:   strconv.Itoa(code),
			Default: state.RankCode == code,
		})
	}

	placeholder := "Select rank"
	if state.AllianceID == 0 {
		placeholder = "Select alliance first"
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    verify.RankToken(state.OwnerID, state.AllianceID),
			Placeholder: placeholder,
			Disabled:    state.AllianceID == 0,
			Options:     options,
		},
	}}
}

func (r *Renderer) memberRow(state verify.WizardState) discordgo.MessageComponent {
	hasContext := state.AllianceID != 0 && state.RankCode != verify.UnsetRank
	hasPlayers := len(state.Players) > 0

	placeholder := "Select your player"
	if !hasContext {
		placeholder = "Select alliance and rank first"
	} else if !hasPlayers {
		placeholder = "No unlinked players found for this rank"
	}

	var options []discordgo.SelectMenuOption
	if hasPlayers {
		for _, p := range state.Players {
			options = append(options, discordgo.SelectMenuOption{
				Label: p.PlayerName,
				Value: strconv.FormatInt(p.PlayerID, 10),
			})
		}
	} else {
		// Select menus need at least one option even while disabled.
		options = []discordgo.SelectMenuOption{{Label: "No players available", Value: "none"}}
	}

	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    verify.MemberToken(state.OwnerID, state.AllianceID, state.RankCode, state.Page),
			Placeholder: placeholder,
			Disabled:    !hasContext || !hasPlayers,
			Options:     options,
		},
	}}
}

func (r *Renderer) pagingRow(state verify.WizardState) discordgo.MessageComponent {
	hasContext := state.AllianceID != 0 && state.RankCode != verify.UnsetRank
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Prev",
			Style:    discordgo.SecondaryButton,
			CustomID: verify.PageToken(state.OwnerID, verify.DirectionPrev, state.AllianceID, state.RankCode, state.Page),
			Disabled: !hasContext || state.Page <= 0,
		},
		discordgo.Button{
			Label:    "Next",
			Style:    discordgo.SecondaryButton,
			CustomID: verify.PageToken(state.OwnerID, verify.DirectionNext, state.AllianceID, state.RankCode, state.Page),
			Disabled: !hasContext || !state.HasNextPage,
		},
	}}
}

func visitorRow(ownerID string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Just Visiting, Not Joining Alliance",
			Style:    discordgo.PrimaryButton,
			CustomID: verify.VisitorToken(ownerID),
		},
	}}
}

// ClaimReviewContent builds the leadership review message for a submitted
// claim.
func ClaimReviewContent(claim *model.ClaimSubmission) string {
	return fmt.Sprintf(
		"New claim submitted.\n\nClaim ID: %d\nDiscord User: <@%s>\nPlayer: %s (%d)",
		claim.ClaimID, claim.DiscordUserID, claim.PlayerName, claim.PlayerID,
	)
}

// ClaimReviewComponents builds the approve/deny row for a submitted claim.
func ClaimReviewComponents(claimID int64, threadID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Approve",
				Style:    discordgo.SuccessButton,
				CustomID: verify.ClaimApproveToken(claimID, threadID),
			},
			discordgo.Button{
				Label:    "Deny",
				Style:    discordgo.DangerButton,
				CustomID: verify.ClaimDenyToken(claimID, threadID),
			},
		}},
	}
}

// VerificationThreadName builds the thread title for a joining member. The
// owner's id rides in the suffix so leave-cleanup can find the thread
// without any server-side registry.
func VerificationThreadName(username, ownerID string) string {
	var b strings.Builder
	lastDash := false
	for _, c := range strings.ToLower(username) {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			b.WriteRune(c)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "member"
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return "verify-" + slug + "-" + ownerID
}

// ThreadOwnerID extracts the owner id a verification thread name carries,
// or "" when the name was not issued by this bot.
func ThreadOwnerID(threadName string) string {
	if !strings.HasPrefix(threadName, "verify-") {
		return ""
	}
	idx := strings.LastIndex(threadName, "-")
	if idx < 0 {
		return ""
	}
	owner := threadName[idx+1:]
	for _, c := range owner {
		if c < '0' || c > '9' {
			return ""
		}
	}
	if len(owner) < 15 {
		return ""
	}
	return owner
}

func (r *Renderer) allianceLabel(allianceID int64) string {
	for _, a := range r.alliances {
		if a.ID == allianceID {
			return a.Label
		}
	}
	return ""
}
