// Package verify implements the verification wizard: the control-token
// codec, the interaction router, and the step state machine. The codec and
// router are pure; the wizard reaches the roster and claim stores only
// through interfaces supplied by the caller.
package verify

import (
	"fmt"
	"strconv"
	"strings"
)

// Control token prefixes. Every interactive element the bot renders carries
// a custom id of the form <prefix><ownerID>_<payload>, except the leadership
// decision buttons which carry <prefix><claimID>_<threadID> and are
// role-scoped rather than owner-scoped.
const (
	PrefixAlliance     = "verify_alliance_"
	PrefixRank         = "verify_rank_"
	PrefixMember       = "verify_member_"
	PrefixPage         = "verify_page_"
	PrefixVisitor      = "verify_visitor_"
	PrefixClaimApprove = "lead_claim_approve_"
	PrefixClaimDeny    = "lead_claim_deny_"
)

// Page directions. The only non-numeric payload field.
const (
	DirectionNext = "next"
	DirectionPrev = "prev"
)

// UnsetRank is rendered into member and page tokens while no rank has been
// chosen. Controls carrying it are disabled client-side; the router rejects
// it on any live route.
const UnsetRank = -1

// OwnedToken is the owner segment plus the action-specific remainder of a
// wizard control token.
type OwnedToken struct {
	OwnerID string
	Rest    string
}

// PagePayload is the decoded payload of a paging button.
type PagePayload struct {
	Direction  string
	AllianceID int64
	RankCode   int
	Page       int
}

// ClaimDecisionPayload is the decoded payload of a leadership decision
// button.
type ClaimDecisionPayload struct {
	ClaimID  int64
	ThreadID string
}

// AllianceToken builds the custom id for the alliance select menu.
func AllianceToken(ownerID string) string {
	return fmt.Sprintf("%s%s_select", PrefixAlliance, ownerID)
}

// RankToken builds the custom id for the rank select menu. The chosen
// alliance rides along so the rank route can validate its own precondition
// without any server-held state; zero means "no alliance chosen yet".
func RankToken(ownerID string, allianceID int64) string {
	return fmt.Sprintf("%s%s_%d", PrefixRank, ownerID, allianceID)
}

// MemberToken builds the custom id for the player select menu.
func MemberToken(ownerID string, allianceID int64, rankCode, page int) string {
	return fmt.Sprintf("%s%s_%d_%d_%d", PrefixMember, ownerID, allianceID, rankCode, page)
}

// PageToken builds the custom id for a paging button. It embeds the full
// wizard context so the next render can be computed from the token alone.
func PageToken(ownerID, direction string, allianceID int64, rankCode, page int) string {
	return fmt.Sprintf("%s%s_%s_%d_%d_%d", PrefixPage, ownerID, direction, allianceID, rankCode, page)
}

// VisitorToken builds the custom id for the "just visiting" button.
func VisitorToken(ownerID string) string {
	return fmt.Sprintf("%s%s_go", PrefixVisitor, ownerID)
}

// ClaimApproveToken builds the custom id for a leadership approve button.
func ClaimApproveToken(claimID int64, threadID string) string {
	return fmt.Sprintf("%s%d_%s", PrefixClaimApprove, claimID, threadID)
}

// ClaimDenyToken builds the custom id for a leadership deny button.
func ClaimDenyToken(claimID int64, threadID string) string {
	return fmt.Sprintf("%s%d_%s", PrefixClaimDeny, claimID, threadID)
}

// ParseOwned splits an owner-scoped token into owner and payload. Tokens are
// attacker-controlled input, so every failure mode returns ok=false instead
// of panicking: wrong prefix, missing separator, or an empty/non-numeric
// owner segment.
func ParseOwned(prefix, token string) (OwnedToken, bool) {
	body, found := strings.CutPrefix(token, prefix)
	if !found {
		return OwnedToken{}, false
	}
	owner, rest, found := strings.Cut(body, "_")
	if !found || !isSnowflake(owner) {
		return OwnedToken{}, false
	}
	return OwnedToken{OwnerID: owner, Rest: rest}, true
}

// ParsePagePayload decodes the payload of a paging token: direction,
// alliance, rank and the page the control was rendered at. Rejects unknown
// directions, wrong arity, non-numeric fields and negative pages. The rank
// may be UnsetRank, which the router rejects on live routes.
func ParsePagePayload(rest string) (PagePayload, bool) {
	parts := strings.Split(rest, "_")
	if len(parts) != 4 {
		return PagePayload{}, false
	}
	direction := parts[0]
	if direction != DirectionNext && direction != DirectionPrev {
		return PagePayload{}, false
	}
	allianceID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || allianceID < 0 {
		return PagePayload{}, false
	}
	rankCode, err := strconv.Atoi(parts[2])
	if err != nil || rankCode < UnsetRank {
		return PagePayload{}, false
	}
	page, err := strconv.Atoi(parts[3])
	if err != nil || page < 0 {
		return PagePayload{}, false
	}
	return PagePayload{
		Direction:  direction,
		AllianceID: allianceID,
		RankCode:   rankCode,
		Page:       page,
	}, true
}

// ParseClaimDecision decodes a leadership decision token. Claim ids are
// serials starting at one, so zero and negative values are forgeries.
func ParseClaimDecision(prefix, token string) (ClaimDecisionPayload, bool) {
	payload, found := strings.CutPrefix(token, prefix)
	if !found {
		return ClaimDecisionPayload{}, false
	}
	claimRaw, threadID, found := strings.Cut(payload, "_")
	if !found || threadID == "" {
		return ClaimDecisionPayload{}, false
	}
	claimID, err := strconv.ParseInt(claimRaw, 10, 64)
	if err != nil || claimID <= 0 {
		return ClaimDecisionPayload{}, false
	}
	return ClaimDecisionPayload{ClaimID: claimID, ThreadID: threadID}, true
}

// ParseSelectedID parses a select-menu value as a non-negative integer.
// Select values travel next to the token and get the same distrust.
func ParseSelectedID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// isSnowflake reports whether s looks like a Discord snowflake: a
// non-empty string of ASCII digits.
func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
