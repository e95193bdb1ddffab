package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/database"
	"github.com/edulab/studytrace-backend/internal/handler"
	"github.com/edulab/studytrace-backend/internal/logger"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/edulab/studytrace-backend/internal/router"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/edulab/studytrace-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting StudyTrace Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studyRepo := repository.NewStudyRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)
	sessionRepo := repository.NewStudySessionRepository(pool)
	logRepo := repository.NewInteractionLogRepository(pool)
	chatRepo := repository.NewChatInteractionRepository(pool)
	pdfRepo := repository.NewPDFViewingRepository(pool)
	quizRepo := repository.NewQuizResponseRepository(pool)
	auditRepo := repository.NewPrivacyAuditRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, adminRepo, rdb)
	studyService := service.NewStudyService(studyRepo)
	sessionService := service.NewSessionService(participantRepo, sessionRepo, studyRepo, logRepo, rdb, log)
	phaseEngine := service.NewPhaseEngineService(pool, sessionRepo, logRepo, rdb, log)
	eventService := service.NewEventService(sessionRepo, logRepo, chatRepo, pdfRepo, quizRepo, rdb, log)
	privacyService := service.NewPrivacyService(cfg, pool, participantRepo, sessionRepo, logRepo, chatRepo, pdfRepo, quizRepo, auditRepo, studyRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Participant: handler.NewParticipantHandler(sessionService),
		Session:     handler.NewSessionHandler(sessionService, phaseEngine),
		Event:       handler.NewEventHandler(eventService),
		Privacy:     handler.NewPrivacyHandler(privacyService),
		Study:       handler.NewStudyHandler(studyService),
		Monitor:     handler.NewMonitorHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	ingestWorker := worker.NewEventIngestWorker(logRepo, rdb, log)
	go ingestWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the ingest worker and wait for the queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
