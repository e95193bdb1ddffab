package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/database"
	"github.com/edulab/studytrace-backend/internal/logger"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/google/uuid"
)

// retention-sweep anonymizes participants whose data exceeded the retention
// window. Intended to run from cron; --dry-run reports candidates without
// touching them.
func main() {
	var (
		dryRun     bool
		studyIDRaw string
	)
	flag.BoolVar(&dryRun, "dry-run", false, "Report candidates without anonymizing")
	flag.StringVar(&studyIDRaw, "study", "", "Restrict the sweep to one study ID")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	var studyID *uuid.UUID
	if studyIDRaw != "" {
		id, err := uuid.Parse(studyIDRaw)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid study ID")
		}
		studyID = &id
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	participantRepo := repository.NewParticipantRepository(pool)
	sessionRepo := repository.NewStudySessionRepository(pool)
	logRepo := repository.NewInteractionLogRepository(pool)
	chatRepo := repository.NewChatInteractionRepository(pool)
	pdfRepo := repository.NewPDFViewingRepository(pool)
	quizRepo := repository.NewQuizResponseRepository(pool)
	auditRepo := repository.NewPrivacyAuditRepository(pool)
	studyRepo := repository.NewStudyRepository(pool)

	privacyService := service.NewPrivacyService(cfg, pool, participantRepo, sessionRepo, logRepo, chatRepo, pdfRepo, quizRepo, auditRepo, studyRepo, log)

	// ─── Run Sweep ─────────────────────────────────────────────────────
	report, err := privacyService.ProcessRetention(ctx, studyID, dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Retention sweep failed")
	}

	fmt.Printf("Retention sweep complete (cutoff %s, dry_run=%t)\n", report.Cutoff.Format("2006-01-02"), report.DryRun)
	fmt.Printf("Candidates: %d, anonymized: %d, skipped: %d, failed: %d\n",
		len(report.Candidates), report.Succeeded, report.Skipped, report.Failed)

	for _, candidate := range report.Candidates {
		fmt.Printf("  %s  %s  %s\n", candidate.ParticipantID, candidate.AnonymizedID, candidate.Status)
	}
}
