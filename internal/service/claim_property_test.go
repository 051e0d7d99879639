package service

import (
	"testing"

	"pgregory.net/rapid"
)

// In-memory model of the claim lifecycle: a claim starts pending and
// accepts exactly one decision; every later decision is a no-op.
type claimState struct {
	status  string
	decided int
}

func newClaimState() *claimState {
	return &claimState{status: "pending"}
}

// decide applies one decision attempt and reports whether it won.
func (c *claimState) decide(approve bool) bool {
	if c.status != "pending" {
		return false
	}
	if approve {
		c.status = "approved"
	} else {
		c.status = "denied"
	}
	c.decided++
	return true
}

func TestClaimSingleDecisionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		claim := newClaimState()
		attempts := rapid.SliceOfN(rapid.Bool(), 1, 20).Draw(t, "attempts")

		wins := 0
		for _, approve := range attempts {
			if claim.decide(approve) {
				wins++
			}
		}

		// Property: exactly one attempt wins, and the final status matches
		// the winning attempt.
		if wins != 1 {
			t.Fatalf("expected exactly one winning decision, got %d", wins)
		}
		if claim.decided != 1 {
			t.Fatalf("claim decided %d times", claim.decided)
		}
		wantStatus := "denied"
		if attempts[0] {
			wantStatus = "approved"
		}
		if claim.status != wantStatus {
			t.Fatalf("expected status %s, got %s", wantStatus, claim.status)
		}
	})
}

func TestClaimLaterDecisionsNoStateChangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		claim := newClaimState()
		first := rapid.Bool().Draw(t, "first")
		claim.decide(first)
		statusAfterFirst := claim.status

		later := rapid.SliceOfN(rapid.Bool(), 0, 10).Draw(t, "later")
		for _, approve := range later {
			if claim.decide(approve) {
				t.Fatalf("decision accepted on non-pending claim")
			}
			if claim.status != statusAfterFirst {
				t.Fatalf("status drifted from %s to %s", statusAfterFirst, claim.status)
			}
		}
	})
}
