// Package roles computes and applies the minimal Discord role diff needed
// to make a member's visible roles match authoritative membership data. The
// diff logic is pure; application goes through an injected mutator.
package roles

import (
	"context"

	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/model"
)

// Vocabulary is the closed set of roles this bot manages. Roles outside it
// are never touched.
type Vocabulary struct {
	RankByCode      map[int]string
	GroupByAlliance map[int64]string
	Visitor         string
	Alumni          string
}

// managedGroups returns every group role: visitor, alumni and one per
// tracked alliance.
func (v Vocabulary) managedGroups() map[string]bool {
	groups := map[string]bool{v.Visitor: true, v.Alumni: true}
	for _, roleID := range v.GroupByAlliance {
		groups[roleID] = true
	}
	return groups
}

// Desired is the derived target role set for one member: exactly one group
// role, and at most one rank role.
type Desired struct {
	GroupRoleID string
	RankRoleID  string // empty when no rank role applies
}

// DesiredFor derives the target role set. A nil state means the member has
// no active link and gets the visitor group. A linked member whose alliance
// is tracked gets that alliance's group plus a rank role when the rank code
// maps to a known tier; a linked member outside every tracked alliance is
// alumni.
func (v Vocabulary) DesiredFor(state *model.LinkedMemberState) Desired {
	if state == nil {
		return Desired{GroupRoleID: v.Visitor}
	}
	if state.AllianceID == nil {
		return Desired{GroupRoleID: v.Alumni}
	}
	groupRoleID, tracked := v.GroupByAlliance[*state.AllianceID]
	if !tracked {
		return Desired{GroupRoleID: v.Alumni}
	}
	desired := Desired{GroupRoleID: groupRoleID}
	if state.RankCode != nil {
		desired.RankRoleID = v.RankByCode[*state.RankCode]
	}
	return desired
}

// Diff is the minimal set of role changes to apply.
type Diff struct {
	Added   []string
	Removed []string
}

// Empty reports whether no changes are needed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffRoles computes the changes that take current to desired. Any managed
// role held but not desired is removed; any desired role not held is added;
// unmanaged roles pass through untouched. Applying the result and diffing
// again yields an empty diff, which is what makes overlapping sweeps safe.
func (v Vocabulary) DiffRoles(current []string, desired Desired) Diff {
	held := make(map[string]bool, len(current))
	for _, roleID := range current {
		held[roleID] = true
	}

	var diff Diff
	for roleID := range v.managedGroups() {
		if roleID != desired.GroupRoleID && held[roleID] {
			diff.Removed = append(diff.Removed, roleID)
		}
	}
	for _, roleID := range v.RankByCode {
		if roleID != desired.RankRoleID && held[roleID] {
			diff.Removed = append(diff.Removed, roleID)
		}
	}

	if desired.GroupRoleID != "" && !held[desired.GroupRoleID] {
		diff.Added = append(diff.Added, desired.GroupRoleID)
	}
	if desired.RankRoleID != "" && !held[desired.RankRoleID] {
		diff.Added = append(diff.Added, desired.RankRoleID)
	}
	return diff
}

// RoleMutator is the platform primitive for reading and changing a guild
// member's roles. MemberRoles reports found=false for users no longer in
// the guild.
type RoleMutator interface {
	MemberRoles(ctx context.Context, discordUserID string) (roleIDs []string, found bool, err error)
	AddRoles(ctx context.Context, discordUserID string, roleIDs []string) error
	RemoveRoles(ctx context.Context, discordUserID string, roleIDs []string) error
}

// LinkStateSource supplies the authoritative link-plus-membership facts
// reconciliation consumes.
type LinkStateSource interface {
	LinkedState(ctx context.Context, discordUserID string) (*model.LinkedMemberState, error)
	AllLinkedStates(ctx context.Context) ([]model.LinkedMemberState, error)
}

// Reconciler applies role diffs for single members and for the whole linked
// population.
type Reconciler struct {
	vocab   Vocabulary
	mutator RoleMutator
	states  LinkStateSource
}

// NewReconciler creates a new Reconciler instance.
func NewReconciler(vocab Vocabulary, mutator RoleMutator, states LinkStateSource) *Reconciler {
	return &Reconciler{vocab: vocab, mutator: mutator, states: states}
}

// ReconcileMember brings one member's roles in line with their link state.
// The returned diff is what was requested; add/remove failures are logged
// and do not fail the call, the next sweep repairs them.
func (r *Reconciler) ReconcileMember(ctx context.Context, discordUserID string) (Diff, error) {
	state, err := r.states.LinkedState(ctx, discordUserID)
	if err != nil {
		return Diff{}, err
	}
	return r.apply(ctx, discordUserID, state)
}

// ReconcileAll sweeps every actively linked member. Members who left the
// guild are skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	states, err := r.states.AllLinkedStates(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for i := range states {
		state := states[i]
		diff, err := r.apply(ctx, state.DiscordUserID, &state)
		if err != nil {
			log.Error().Err(err).
				Str("discord_user_id", state.DiscordUserID).
				Msg("Failed to reconcile member roles")
			continue
		}
		if !diff.Empty() {
			updated++
		}
	}
	log.Info().Int("linked_members", len(states)).Int("updated", updated).Msg("Reconciled roles for linked members")
	return nil
}

// ApplyFor reconciles a member whose link state the caller already holds,
// used on guild-join where the state also decides whether to open a
// verification thread.
func (r *Reconciler) ApplyFor(ctx context.Context, discordUserID string, state *model.LinkedMemberState) (Diff, error) {
	return r.apply(ctx, discordUserID, state)
}

func (r *Reconciler) apply(ctx context.Context, discordUserID string, state *model.LinkedMemberState) (Diff, error) {
	current, found, err := r.mutator.MemberRoles(ctx, discordUserID)
	if err != nil {
		return Diff{}, err
	}
	if !found {
		log.Debug().Str("discord_user_id", discordUserID).Msg("Member not in guild, skipping reconciliation")
		return Diff{}, nil
	}

	desired := r.vocab.DesiredFor(state)
	diff := r.vocab.DiffRoles(current, desired)

	if len(diff.Removed) > 0 {
		if err := r.mutator.RemoveRoles(ctx, discordUserID, diff.Removed); err != nil {
			log.Error().Err(err).
				Str("discord_user_id", discordUserID).
				Strs("role_ids", diff.Removed).
				Msg("Failed to remove roles")
		}
	}
	if len(diff.Added) > 0 {
		if err := r.mutator.AddRoles(ctx, discordUserID, diff.Added); err != nil {
			log.Error().Err(err).
				Str("discord_user_id", discordUserID).
				Strs("role_ids", diff.Added).
				Msg("Failed to add roles")
		}
	}

	log.Info().
		Str("discord_user_id", discordUserID).
		Bool("linked", state != nil).
		Str("target_group_role", desired.GroupRoleID).
		Str("target_rank_role", desired.RankRoleID).
		Strs("added", diff.Added).
		Strs("removed", diff.Removed).
		Msg("Reconciled member roles")
	return diff, nil
}
