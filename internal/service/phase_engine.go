package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Phase engine errors.
var (
	ErrSessionNotFound   = errors.New("study session not found")
	ErrInvalidTransition = errors.New("phase transition violates protocol order")
	ErrConsentRequired   = errors.New("consent must be recorded before leaving the consent phase")
)

// TransitionResult describes the outcome of one phase transition.
type TransitionResult struct {
	Session  *model.StudySession `json:"session"`
	OldPhase model.Phase         `json:"old_phase"`
	NewPhase model.Phase         `json:"new_phase"`
	// Changed is false for the idempotent same-phase no-op.
	Changed bool `json:"changed"`
	// ClosedDurationSeconds is the whole-second duration added to the
	// phase that was exited.
	ClosedDurationSeconds int64 `json:"closed_duration_seconds"`
}

// PhaseBreakdown is the per-phase duration view exposed to analytics.
type PhaseBreakdown struct {
	SessionID       uuid.UUID             `json:"session_id"`
	CurrentPhase    model.Phase           `json:"current_phase"`
	Durations       map[model.Phase]int64 `json:"durations_seconds"`
	LiveElapsed     int64                 `json:"live_elapsed_seconds"`
	TotalSeconds    int64                 `json:"total_seconds"`
	CompletionFlags map[model.Phase]bool  `json:"completion_flags"`
	StudyCompleted  bool                  `json:"study_completed"`
}

// PhaseEngineService owns study session phase transitions and duration
// bookkeeping. Every transition runs as one transaction under a row lock so
// two concurrent calls can never double-close the same phase.
type PhaseEngineService struct {
	pool        *pgxpool.Pool
	sessionRepo *repository.StudySessionRepository
	logRepo     *repository.InteractionLogRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewPhaseEngineService creates a new PhaseEngineService.
func NewPhaseEngineService(
	pool *pgxpool.Pool,
	sessionRepo *repository.StudySessionRepository,
	logRepo *repository.InteractionLogRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *PhaseEngineService {
	return &PhaseEngineService{
		pool:        pool,
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "phase_engine").Logger(),
	}
}

// applyTransition mutates the in-memory session for a transition to newPhase
// at the given instant. It is the single source of the protocol rules:
//
//   - same phase: success without mutation;
//   - backward or unknown phase: ErrInvalidTransition, nothing touched;
//   - otherwise the old phase is closed (end stamp, whole-second duration
//     accumulated, completion flag set exactly once) and the new one opened;
//   - entering PhaseCompleted marks the study complete and ends the session
//     only when all four tracked phases have completed. A forward skip into
//     the terminal phase switches the phase but leaves the study incomplete.
func applyTransition(s *model.StudySession, newPhase model.Phase, at time.Time) (*TransitionResult, error) {
	res := &TransitionResult{Session: s, OldPhase: s.CurrentPhase, NewPhase: newPhase}

	if newPhase == s.CurrentPhase {
		return res, nil
	}
	if !s.CurrentPhase.CanAdvanceTo(newPhase) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.CurrentPhase, newPhase)
	}

	// Close the phase being exited.
	if prev := s.Progress(s.CurrentPhase); prev != nil {
		end := at
		prev.EndedAt = &end

		start := s.StartedAt
		if prev.StartedAt != nil {
			start = *prev.StartedAt
		}
		duration := int64(at.Sub(start).Seconds())
		if duration < 0 {
			duration = 0
		}
		prev.DurationSeconds += duration
		res.ClosedDurationSeconds = duration

		if !prev.Completed {
			prev.Completed = true
			completedAt := at
			prev.CompletedAt = &completedAt
		}
	}

	// Open the new phase.
	if next := s.Progress(newPhase); next != nil {
		start := at
		next.StartedAt = &start
	}
	s.CurrentPhase = newPhase
	res.Changed = true

	if newPhase == model.PhaseCompleted && s.AllPhasesCompleted() {
		s.IsCompleted = true
		s.IsActive = false
		end := at
		s.EndedAt = &end
	}

	return res, nil
}

// TransitionPhase advances a session to newPhase. The row lock, the session
// update and the audit event commit or roll back together.
func (s *PhaseEngineService) TransitionPhase(ctx context.Context, sessionID uuid.UUID, newPhase model.Phase, at time.Time) (*TransitionResult, error) {
	if !newPhase.Valid() {
		return nil, fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, newPhase)
	}
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	session, err := s.sessionRepo.GetForUpdate(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}

	res, err := applyTransition(session, newPhase, at)
	if err != nil {
		return nil, err
	}

	// Idempotent no-op: nothing to persist, no audit entry.
	if !res.Changed {
		return res, nil
	}

	// The consent phase is only left once informed consent is on record.
	if res.OldPhase == model.PhaseConsent {
		var consentGiven bool
		if err := tx.QueryRow(ctx,
			`SELECT consent_given FROM participants WHERE id = $1`, session.ParticipantID,
		).Scan(&consentGiven); err != nil {
			return nil, fmt.Errorf("check consent: %w", err)
		}
		if !consentGiven {
			return nil, ErrConsentRequired
		}
	}

	if err := s.sessionRepo.SaveProgress(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	payload, _ := json.Marshal(map[string]string{
		"old_phase": string(res.OldPhase),
		"new_phase": string(res.NewPhase),
	})
	audit := &model.InteractionLog{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		EventType:     model.EventTypePhaseTransition,
		Payload:       payload,
		OccurredAt:    at,
	}
	if err := s.logRepo.InsertTx(ctx, tx, audit); err != nil {
		return nil, fmt.Errorf("write audit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	s.publishTransition(ctx, session, res)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("old_phase", string(res.OldPhase)).
		Str("new_phase", string(res.NewPhase)).
		Int64("closed_duration_s", res.ClosedDurationSeconds).
		Bool("study_completed", session.IsCompleted).
		Msg("Phase transition")

	return res, nil
}

// publishTransition pushes the transition onto the researcher monitor
// channel. Best effort: a monitoring failure never fails the transition.
func (s *PhaseEngineService) publishTransition(ctx context.Context, session *model.StudySession, res *TransitionResult) {
	event, _ := json.Marshal(map[string]any{
		"participant_id": session.ParticipantID,
		"session_id":     session.ID,
		"old_phase":      res.OldPhase,
		"new_phase":      res.NewPhase,
		"is_completed":   session.IsCompleted,
	})
	if err := s.rdb.Publish(ctx, config.CacheKey.PhaseMonitorChannel(), event).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Publish phase event failed")
	}
}

// GetBreakdown returns recorded phase durations plus the live phase's
// elapsed time as of now.
func (s *PhaseEngineService) GetBreakdown(ctx context.Context, sessionID uuid.UUID, now time.Time) (*PhaseBreakdown, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return buildBreakdown(session, now), nil
}

func buildBreakdown(session *model.StudySession, now time.Time) *PhaseBreakdown {
	b := &PhaseBreakdown{
		SessionID:       session.ID,
		CurrentPhase:    session.CurrentPhase,
		Durations:       make(map[model.Phase]int64, len(model.TrackedPhases)),
		CompletionFlags: make(map[model.Phase]bool, len(model.TrackedPhases)),
		StudyCompleted:  session.IsCompleted,
	}

	for _, p := range model.TrackedPhases {
		progress := session.Progress(p)
		b.Durations[p] = progress.DurationSeconds
		b.CompletionFlags[p] = progress.Completed
		b.TotalSeconds += progress.DurationSeconds
	}

	if session.IsActive {
		if live := session.Progress(session.CurrentPhase); live != nil && live.StartedAt != nil {
			elapsed := int64(now.Sub(*live.StartedAt).Seconds())
			if elapsed < 0 {
				elapsed = 0
			}
			b.LiveElapsed = elapsed
			b.TotalSeconds += elapsed
		}
	}

	return b
}
