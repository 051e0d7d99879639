package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testOwner      = "123456789012345678"
	otherUser      = "999888777666555444"
	leadChannel    = "200000000000000001"
	threadChannel  = "200000000000000002"
	randomChannel  = "200000000000000003"
	reviewThreadID = "200000000000000004"
)

// wizardInput builds a RouteInput for a component click inside the owner's
// verification thread.
func wizardInput(customID string, controlType ControlType, values ...string) RouteInput {
	return RouteInput{
		CustomID:             customID,
		ControlType:          controlType,
		ActorID:              testOwner,
		ChannelID:            threadChannel,
		LeadershipChannelID:  leadChannel,
		IsVerificationThread: true,
		SelectedValues:       values,
	}
}

func TestRouteInteraction_OwnershipEnforced(t *testing.T) {
	input := wizardInput(AllianceToken(otherUser), ControlSelect, "530061")

	route := RouteInteraction(input)
	assert.Equal(t, RouteAuthError, route.Kind)
	assert.Equal(t, ReasonNotOwner, route.Reason)
}

func TestRouteInteraction_AllianceSelect(t *testing.T) {
	route := RouteInteraction(wizardInput(AllianceToken(testOwner), ControlSelect, "530061"))

	assert.Equal(t, RouteAlliance, route.Kind)
	assert.Equal(t, testOwner, route.OwnerID)
	assert.Equal(t, int64(530061), route.AllianceID)
}

func TestRouteInteraction_RankWithoutAlliance(t *testing.T) {
	// A rank token minted before any alliance was chosen carries zero.
	route := RouteInteraction(wizardInput(RankToken(testOwner, 0), ControlSelect, "3"))

	assert.Equal(t, RouteAuthError, route.Kind)
	assert.Equal(t, ReasonSelectAllianceFirst, route.Reason)
}

func TestRouteInteraction_RankSelect(t *testing.T) {
	route := RouteInteraction(wizardInput(RankToken(testOwner, 530061), ControlSelect, "3"))

	assert.Equal(t, RouteRank, route.Kind)
	assert.Equal(t, int64(530061), route.AllianceID)
	assert.Equal(t, 3, route.RankCode)
}

func TestRouteInteraction_PageButton(t *testing.T) {
	route := RouteInteraction(wizardInput(PageToken(testOwner, DirectionNext, 530061, 3, 2), ControlButton))

	assert.Equal(t, RoutePage, route.Kind)
	assert.Equal(t, DirectionNext, route.Direction)
	assert.Equal(t, 2, route.Page)
}

func TestRouteInteraction_PageWithUnsetRankRejected(t *testing.T) {
	route := RouteInteraction(wizardInput(PageToken(testOwner, DirectionNext, 530061, UnsetRank, 0), ControlButton))

	assert.Equal(t, RouteAuthError, route.Kind)
	assert.Equal(t, ReasonInvalidPayload, route.Reason)
}

func TestRouteInteraction_MemberSelect(t *testing.T) {
	route := RouteInteraction(wizardInput(MemberToken(testOwner, 530061, 3, 0), ControlSelect, "777001"))

	assert.Equal(t, RouteMember, route.Kind)
	assert.Equal(t, int64(777001), route.PlayerID)
}

func TestRouteInteraction_MemberPlaceholderValueRejected(t *testing.T) {
	route := RouteInteraction(wizardInput(MemberToken(testOwner, 530061, 3, 0), ControlSelect, "none"))

	assert.Equal(t, RouteAuthError, route.Kind)
	assert.Equal(t, ReasonInvalidPayload, route.Reason)
}

func TestRouteInteraction_VisitorButton(t *testing.T) {
	route := RouteInteraction(wizardInput(VisitorToken(testOwner), ControlButton))

	assert.Equal(t, RouteVisitor, route.Kind)
	assert.Equal(t, testOwner, route.OwnerID)
}

func TestRouteInteraction_WizardOutsideThreadIgnored(t *testing.T) {
	input := wizardInput(AllianceToken(testOwner), ControlSelect, "530061")
	input.IsVerificationThread = false
	input.ChannelID = randomChannel

	route := RouteInteraction(input)
	assert.Equal(t, RouteIgnore, route.Kind)
}

func TestRouteInteraction_UnknownTokenIgnored(t *testing.T) {
	route := RouteInteraction(wizardInput("some_other_bot_button", ControlButton))
	assert.Equal(t, RouteIgnore, route.Kind)
}

func TestRouteInteraction_ClaimDecision(t *testing.T) {
	base := RouteInput{
		CustomID:            ClaimApproveToken(42, reviewThreadID),
		ControlType:         ControlButton,
		ActorID:             testOwner,
		ChannelID:           leadChannel,
		LeadershipChannelID: leadChannel,
		ActorIsLeadership:   true,
	}

	t.Run("approve accepted", func(t *testing.T) {
		route := RouteInteraction(base)
		assert.Equal(t, RouteClaimApprove, route.Kind)
		assert.Equal(t, int64(42), route.ClaimID)
		assert.Equal(t, reviewThreadID, route.ThreadID)
	})

	t.Run("deny accepted", func(t *testing.T) {
		input := base
		input.CustomID = ClaimDenyToken(42, reviewThreadID)
		route := RouteInteraction(input)
		assert.Equal(t, RouteClaimDeny, route.Kind)
	})

	t.Run("wrong channel checked before role", func(t *testing.T) {
		input := base
		input.ChannelID = randomChannel
		input.ActorIsLeadership = false
		route := RouteInteraction(input)
		assert.Equal(t, RouteAuthError, route.Kind)
		assert.Equal(t, ReasonWrongChannel, route.Reason)
	})

	t.Run("non-leadership rejected", func(t *testing.T) {
		input := base
		input.ActorIsLeadership = false
		route := RouteInteraction(input)
		assert.Equal(t, RouteAuthError, route.Kind)
		assert.Equal(t, ReasonNotLeadership, route.Reason)
	})

	t.Run("forged payload rejected after auth", func(t *testing.T) {
		input := base
		input.CustomID = PrefixClaimApprove + "0_thread"
		route := RouteInteraction(input)
		assert.Equal(t, RouteAuthError, route.Kind)
		assert.Equal(t, ReasonInvalidPayload, route.Reason)
	})
}
