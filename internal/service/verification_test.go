// Integration tests for the claim lifecycle run against a real PostgreSQL
// instance via testcontainers-go and the embedded goose migrations.
package service

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"discord-alliance-bot/internal/pkg/db"
	"discord-alliance-bot/internal/repository"
	"discord-alliance-bot/internal/roles"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container, runs the migrations and
// returns a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

// recordingMutator satisfies roles.RoleMutator and records the changes it
// is asked to apply.
type recordingMutator struct {
	current []string
	added   []string
	removed []string
}

func (m *recordingMutator) MemberRoles(_ context.Context, _ string) ([]string, bool, error) {
	return m.current, true, nil
}

func (m *recordingMutator) AddRoles(_ context.Context, _ string, roleIDs []string) error {
	m.added = append(m.added, roleIDs...)
	return nil
}

func (m *recordingMutator) RemoveRoles(_ context.Context, _ string, roleIDs []string) error {
	m.removed = append(m.removed, roleIDs...)
	return nil
}

// A claim submitted through the service and approved by leadership must
// flow all the way into roles: the freshly created link drives a diff that
// grants the alliance group and rank roles and strips visitor.
func TestVerificationService_ApproveDrivesRoleReconciliation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	players := repository.NewPlayerRepository(pool)
	claims := repository.NewClaimRepository(pool)
	links := repository.NewLinkRepository(pool)

	require.NoError(t, players.UpsertAlliance(ctx, 530061, "The Order"))
	require.NoError(t, players.UpsertAlliancePlayers(ctx, 530061, []repository.PlayerUpsert{
		{PlayerID: 42, PlayerName: "Knight", RankCode: 3},
	}))

	verification := NewVerificationService(players, claims, 7, 7)

	sub, err := verification.SubmitClaim(ctx, "888000000000000888", 42)
	require.NoError(t, err)
	assert.Equal(t, "Knight", sub.PlayerName)

	decision, err := verification.ApproveClaim(ctx, sub.ClaimID, "111000000000000111")
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, "888000000000000888", decision.DiscordUserID)

	vocab := roles.Vocabulary{
		RankByCode:      map[int]string{3: "role-general"},
		GroupByAlliance: map[int64]string{530061: "role-main-alliance"},
		Visitor:         "role-visitor",
		Alumni:          "role-alumni",
	}
	mutator := &recordingMutator{current: []string{"role-visitor", "role-unmanaged"}}

	diff, err := roles.NewReconciler(vocab, mutator, links).ReconcileMember(ctx, decision.DiscordUserID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"role-main-alliance", "role-general"}, diff.Added)
	assert.ElementsMatch(t, []string{"role-visitor"}, diff.Removed)
	assert.ElementsMatch(t, []string{"role-main-alliance", "role-general"}, mutator.added)
	assert.ElementsMatch(t, []string{"role-visitor"}, mutator.removed)
}
