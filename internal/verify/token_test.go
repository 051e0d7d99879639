package verify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseOwned_Roundtrip(t *testing.T) {
	owner := "123456789012345678"

	owned, ok := ParseOwned(PrefixAlliance, AllianceToken(owner))
	require.True(t, ok)
	assert.Equal(t, owner, owned.OwnerID)
	assert.Equal(t, "select", owned.Rest)

	owned, ok = ParseOwned(PrefixRank, RankToken(owner, 530061))
	require.True(t, ok)
	assert.Equal(t, owner, owned.OwnerID)
	assert.Equal(t, "530061", owned.Rest)

	owned, ok = ParseOwned(PrefixVisitor, VisitorToken(owner))
	require.True(t, ok)
	assert.Equal(t, owner, owned.OwnerID)
	assert.Equal(t, "go", owned.Rest)
}

func TestParseOwned_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"wrong prefix", "verify_rank_123_select"},
		{"empty owner", "verify_alliance__select"},
		{"non-numeric owner", "verify_alliance_abc_select"},
		{"no separator after owner", "verify_alliance_123"},
		{"empty token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseOwned(PrefixAlliance, tt.token)
			assert.False(t, ok)
		})
	}
}

func TestParsePagePayload_Roundtrip(t *testing.T) {
	owner := "123456789012345678"
	token := PageToken(owner, DirectionNext, 530061, 3, 7)

	owned, ok := ParseOwned(PrefixPage, token)
	require.True(t, ok)

	payload, ok := ParsePagePayload(owned.Rest)
	require.True(t, ok)
	assert.Equal(t, DirectionNext, payload.Direction)
	assert.Equal(t, int64(530061), payload.AllianceID)
	assert.Equal(t, 3, payload.RankCode)
	assert.Equal(t, 7, payload.Page)
}

func TestParsePagePayload_Rejections(t *testing.T) {
	tests := []struct {
		name string
		rest string
	}{
		{"wrong arity", "next_1_2"},
		{"extra field", "next_1_2_3_4"},
		{"unknown direction", "sideways_1_2_3"},
		{"negative alliance", "next_-1_2_3"},
		{"rank below unset", "next_1_-2_3"},
		{"negative page", "next_1_2_-1"},
		{"non-numeric page", "next_1_2_x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParsePagePayload(tt.rest)
			assert.False(t, ok)
		})
	}
}

func TestParsePagePayload_AcceptsUnsetRank(t *testing.T) {
	payload, ok := ParsePagePayload("prev_530061_-1_0")
	require.True(t, ok)
	assert.Equal(t, UnsetRank, payload.RankCode)
}

func TestParseClaimDecision_Roundtrip(t *testing.T) {
	token := ClaimApproveToken(42, "111222333444555666")

	payload, ok := ParseClaimDecision(PrefixClaimApprove, token)
	require.True(t, ok)
	assert.Equal(t, int64(42), payload.ClaimID)
	assert.Equal(t, "111222333444555666", payload.ThreadID)
}

func TestParseClaimDecision_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"zero claim id", PrefixClaimDeny + "0_999"},
		{"negative claim id", PrefixClaimDeny + "-5_999"},
		{"missing thread", PrefixClaimDeny + "42"},
		{"empty thread", PrefixClaimDeny + "42_"},
		{"non-numeric claim", PrefixClaimDeny + "abc_999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseClaimDecision(PrefixClaimDeny, tt.token)
			assert.False(t, ok)
		})
	}
}

// Token parsing must never panic and must roundtrip for every well-formed
// input the builders can produce.
func TestTokenRoundtripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		owner := fmt.Sprintf("%d", rapid.Int64Range(1, 1<<62).Draw(t, "owner"))
		allianceID := rapid.Int64Range(0, 1<<40).Draw(t, "allianceID")
		rankCode := rapid.IntRange(UnsetRank, 9).Draw(t, "rankCode")
		page := rapid.IntRange(0, 10000).Draw(t, "page")
		direction := rapid.SampledFrom([]string{DirectionNext, DirectionPrev}).Draw(t, "direction")

		owned, ok := ParseOwned(PrefixMember, MemberToken(owner, allianceID, rankCode, page))
		if !ok || owned.OwnerID != owner {
			t.Fatalf("member token did not roundtrip for owner %s", owner)
		}

		owned, ok = ParseOwned(PrefixPage, PageToken(owner, direction, allianceID, rankCode, page))
		if !ok {
			t.Fatalf("page token did not parse")
		}
		payload, ok := ParsePagePayload(owned.Rest)
		if !ok {
			t.Fatalf("page payload did not parse")
		}
		if payload.Direction != direction || payload.AllianceID != allianceID ||
			payload.RankCode != rankCode || payload.Page != page {
			t.Fatalf("page payload did not roundtrip: %+v", payload)
		}
	})
}

// Arbitrary strings must parse without panicking, in every parser.
func TestTokenParserTotalityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "token")
		ParseOwned(PrefixAlliance, s)
		ParseOwned(PrefixRank, s)
		ParseOwned(PrefixMember, s)
		ParseOwned(PrefixPage, s)
		ParseOwned(PrefixVisitor, s)
		ParsePagePayload(s)
		ParseClaimDecision(PrefixClaimApprove, s)
		ParseClaimDecision(PrefixClaimDeny, s)
		ParseSelectedID(s)
	})
}
