package verify

import "strings"

// ControlType distinguishes the two interactive element kinds the wizard
// renders.
type ControlType string

// Control types.
const (
	ControlButton ControlType = "button"
	ControlSelect ControlType = "select"
)

// AuthReason identifies why an interaction was rejected.
type AuthReason string

// Authorization failure reasons. InvalidPayload covers every structurally
// malformed token and is deliberately unspecific in its user-facing message.
const (
	ReasonInvalidPayload      AuthReason = "invalid_payload"
	ReasonNotOwner            AuthReason = "not_owner"
	ReasonNotLeadership       AuthReason = "not_leadership"
	ReasonWrongChannel        AuthReason = "wrong_channel"
	ReasonSelectAllianceFirst AuthReason = "select_alliance_first"
)

// RouteKind enumerates the closed set of routing outcomes.
type RouteKind int

// Route kinds.
const (
	RouteIgnore RouteKind = iota
	RouteAuthError
	RouteClaimApprove
	RouteClaimDeny
	RouteVisitor
	RouteAlliance
	RouteRank
	RoutePage
	RouteMember
)

// RouteInput is everything the router needs to classify one component
// interaction. The leadership and thread-scoping facts are queried by the
// caller beforehand, which keeps routing pure and testable offline.
type RouteInput struct {
	CustomID             string
	ControlType          ControlType
	ActorID              string
	ChannelID            string
	LeadershipChannelID  string
	ActorIsLeadership    bool
	IsVerificationThread bool
	SelectedValues       []string
}

// Route is the typed, authorization-checked command decoded from an
// interaction. Only the fields relevant to Kind are populated.
type Route struct {
	Kind   RouteKind
	Reason AuthReason

	OwnerID    string
	ClaimID    int64
	ThreadID   string
	AllianceID int64
	RankCode   int
	Direction  string
	Page       int
	PlayerID   int64
}

func ignore() Route {
	return Route{Kind: RouteIgnore}
}

func authError(reason AuthReason) Route {
	return Route{Kind: RouteAuthError, Reason: reason}
}

// firstSelected returns the first selected value of a select interaction.
func firstSelected(input RouteInput) string {
	if len(input.SelectedValues) == 0 {
		return ""
	}
	return input.SelectedValues[0]
}

// RouteInteraction classifies one component interaction. Leadership actions
// are matched first and are role-scoped: they require the leadership channel
// and a leadership actor regardless of token contents. Everything else is
// owner-scoped and only live inside a verification thread; interactions
// elsewhere, and tokens this bot never issued, are ignored.
func RouteInteraction(input RouteInput) Route {
	if input.ControlType == ControlButton {
		if route, matched := routeClaimDecision(input, PrefixClaimApprove, RouteClaimApprove); matched {
			return route
		}
		if route, matched := routeClaimDecision(input, PrefixClaimDeny, RouteClaimDeny); matched {
			return route
		}
	}

	if !input.IsVerificationThread {
		return ignore()
	}

	switch {
	case input.ControlType == ControlButton && strings.HasPrefix(input.CustomID, PrefixVisitor):
		owned, ok := ParseOwned(PrefixVisitor, input.CustomID)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if owned.OwnerID != input.ActorID {
			return authError(ReasonNotOwner)
		}
		return Route{Kind: RouteVisitor, OwnerID: owned.OwnerID}

	case input.ControlType == ControlSelect && strings.HasPrefix(input.CustomID, PrefixAlliance):
		owned, ok := ParseOwned(PrefixAlliance, input.CustomID)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if owned.OwnerID != input.ActorID {
			return authError(ReasonNotOwner)
		}
		allianceID, ok := ParseSelectedID(firstSelected(input))
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		return Route{Kind: RouteAlliance, OwnerID: owned.OwnerID, AllianceID: allianceID}

	case input.ControlType == ControlSelect && strings.HasPrefix(input.CustomID, PrefixRank):
		owned, ok := ParseOwned(PrefixRank, input.CustomID)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if owned.OwnerID != input.ActorID {
			return authError(ReasonNotOwner)
		}
		// The alliance rides inside the rank token itself; a zero means
		// the menu was rendered before any alliance was chosen.
		allianceID, ok := ParseSelectedID(owned.Rest)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if allianceID == 0 {
			return authError(ReasonSelectAllianceFirst)
		}
		rankCode, ok := ParseSelectedID(firstSelected(input))
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		return Route{
			Kind:       RouteRank,
			OwnerID:    owned.OwnerID,
			AllianceID: allianceID,
			RankCode:   int(rankCode),
		}

	case input.ControlType == ControlButton && strings.HasPrefix(input.CustomID, PrefixPage):
		owned, ok := ParseOwned(PrefixPage, input.CustomID)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if owned.OwnerID != input.ActorID {
			return authError(ReasonNotOwner)
		}
		payload, ok := ParsePagePayload(owned.Rest)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		// Paging is only reachable after a rank was chosen; an unset rank
		// here means a disabled control's token was replayed by hand.
		if payload.AllianceID == 0 || payload.RankCode == UnsetRank {
			return authError(ReasonInvalidPayload)
		}
		return Route{
			Kind:       RoutePage,
			OwnerID:    owned.OwnerID,
			Direction:  payload.Direction,
			AllianceID: payload.AllianceID,
			RankCode:   payload.RankCode,
			Page:       payload.Page,
		}

	case input.ControlType == ControlSelect && strings.HasPrefix(input.CustomID, PrefixMember):
		owned, ok := ParseOwned(PrefixMember, input.CustomID)
		if !ok {
			return authError(ReasonInvalidPayload)
		}
		if owned.OwnerID != input.ActorID {
			return authError(ReasonNotOwner)
		}
		playerID, ok := ParseSelectedID(firstSelected(input))
		if !ok || playerID == 0 {
			return authError(ReasonInvalidPayload)
		}
		return Route{Kind: RouteMember, OwnerID: owned.OwnerID, PlayerID: playerID}
	}

	return ignore()
}

// routeClaimDecision matches one leadership decision prefix. Channel and
// role checks come before payload parsing so a forged token cannot probe
// which claim ids exist from outside the leadership channel.
func routeClaimDecision(input RouteInput, prefix string, kind RouteKind) (Route, bool) {
	if !strings.HasPrefix(input.CustomID, prefix) {
		return Route{}, false
	}
	if input.ChannelID != input.LeadershipChannelID {
		return authError(ReasonWrongChannel), true
	}
	if !input.ActorIsLeadership {
		return authError(ReasonNotLeadership), true
	}
	payload, ok := ParseClaimDecision(prefix, input.CustomID)
	if !ok {
		return authError(ReasonInvalidPayload), true
	}
	return Route{Kind: kind, ClaimID: payload.ClaimID, ThreadID: payload.ThreadID}, true
}
