// Package main is the entry point for the alliance verification bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"discord-alliance-bot/internal/config"
	"discord-alliance-bot/internal/discord"
	"discord-alliance-bot/internal/gge"
	"discord-alliance-bot/internal/pkg/db"
	"discord-alliance-bot/internal/repository"
	"discord-alliance-bot/internal/roles"
	"discord-alliance-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	playerRepo := repository.NewPlayerRepository(dbPool)
	claimRepo := repository.NewClaimRepository(dbPool)
	linkRepo := repository.NewLinkRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)
	syncRunRepo := repository.NewSyncRunRepository(dbPool)

	// Services
	verificationService := service.NewVerificationService(
		playerRepo,
		claimRepo,
		cfg.Claims.ExpiryDays,
		cfg.Claims.RetentionDays,
	)
	linkService := service.NewLinkService(playerRepo, linkRepo, cfg.Sync.AllianceIDs)

	trackerClient := gge.New(gge.Config{
		BaseURL:    cfg.GGE.BaseURL,
		ServerCode: cfg.GGE.ServerCode,
		MaxRetries: cfg.GGE.MaxRetries,
	})

	// The post-sync sweep needs the bot's reconciler, which needs the
	// session; the indirection breaks the construction cycle.
	var bot *discord.Bot
	syncService := service.NewSyncService(
		playerRepo,
		syncRunRepo,
		trackerClient,
		cfg.Sync.AllianceIDs,
		func(ctx context.Context) error {
			if bot == nil {
				return nil
			}
			return bot.Reconciler().ReconcileAll(ctx)
		},
	)

	vocab := roles.Vocabulary{
		RankByCode:      cfg.Roles.Rank,
		GroupByAlliance: cfg.Roles.Alliance,
		Visitor:         cfg.Roles.Visitor,
		Alumni:          cfg.Roles.Alumni,
	}

	bot, err = discord.New(&discord.Dependencies{
		Config:         cfg,
		Verification:   verificationService,
		Links:          linkService,
		Sync:           syncService,
		RoleVocabulary: vocab,
		LinkStates:     linkRepo,
		Audit:          auditRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := bot.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}

	go runSyncSchedule(ctx, syncService, cfg.Sync.IntervalHours)
	go runClaimPurgeSchedule(ctx, verificationService)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	if err := bot.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to close gateway session")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// runSyncSchedule triggers a full roster sync on the configured interval.
// The first run fires immediately so a fresh deployment has data before the
// first tick.
func runSyncSchedule(ctx context.Context, syncService *service.SyncService, intervalHours int) {
	if err := syncService.RunFullSync(ctx, "scheduled"); err != nil {
		log.Error().Err(err).Msg("Initial sync failed")
	}

	ticker := time.NewTicker(time.Duration(intervalHours) * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := syncService.RunFullSync(ctx, "scheduled"); err != nil {
				log.Error().Err(err).Msg("Scheduled sync failed")
			}
		}
	}
}

// runClaimPurgeSchedule deletes expired denied claims once a day, freeing
// the players they held for a fresh claim.
func runClaimPurgeSchedule(ctx context.Context, verificationService *service.VerificationService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := verificationService.PurgeExpiredDenied(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Denied claim purge failed")
				continue
			}
			if purged > 0 {
				log.Info().Int64("purged", purged).Msg("Purged expired denied claims")
			}
		}
	}
}
