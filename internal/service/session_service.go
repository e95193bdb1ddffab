package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/privacy"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session service errors.
var (
	ErrStudyNotFound        = errors.New("study not found")
	ErrSessionAlreadyActive = errors.New("participant already has an active session")
	ErrSessionNotActive     = errors.New("no active session")
	ErrParticipantWithdrawn = errors.New("participant has withdrawn")
)

// activeSessionTTL bounds how long a stale cache entry can outlive its
// session; the DB fallback self-heals within one lookup anyway.
const activeSessionTTL = 24 * time.Hour

// SessionService owns participant enrollment and the study session lifecycle
// around the phase engine: start, lookup, summary, termination.
type SessionService struct {
	participantRepo *repository.ParticipantRepository
	sessionRepo     *repository.StudySessionRepository
	studyRepo       *repository.StudyRepository
	logRepo         *repository.InteractionLogRepository
	rdb             *redis.Client
	log             zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	participantRepo *repository.ParticipantRepository,
	sessionRepo *repository.StudySessionRepository,
	studyRepo *repository.StudyRepository,
	logRepo *repository.InteractionLogRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		participantRepo: participantRepo,
		sessionRepo:     sessionRepo,
		studyRepo:       studyRepo,
		logRepo:         logRepo,
		rdb:             rdb,
		log:             log.With().Str("component", "session_service").Logger(),
	}
}

// EnrollParticipant registers a new research subject under a study and
// assigns the anonymized ID that will identify them for the rest of their
// data's lifetime.
func (s *SessionService) EnrollParticipant(ctx context.Context, req *model.EnrollParticipantRequest) (*model.Participant, error) {
	studyID, err := uuid.Parse(req.StudyID)
	if err != nil {
		return nil, fmt.Errorf("parse study id: %w", err)
	}

	study, err := s.studyRepo.GetByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudyNotFound
		}
		return nil, fmt.Errorf("get study: %w", err)
	}
	if !study.IsActive {
		return nil, ErrStudyNotFound
	}

	anonymizedID, err := privacy.NewAnonymizedID()
	if err != nil {
		return nil, fmt.Errorf("generate anonymized id: %w", err)
	}

	participant := &model.Participant{
		StudyID:        studyID,
		AnonymizedID:   anonymizedID,
		Email:          req.Email,
		DisplayName:    req.DisplayName,
		AgeGroup:       req.AgeGroup,
		EducationLevel: req.EducationLevel,
		Condition:      model.Condition(req.Condition),
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}

	s.log.Info().
		Str("anonymized_id", anonymizedID).
		Str("study_id", studyID.String()).
		Str("condition", req.Condition).
		Msg("Participant enrolled")

	return participant, nil
}

// GetParticipant retrieves one participant record.
func (s *SessionService) GetParticipant(ctx context.Context, participantID uuid.UUID) (*model.Participant, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return participant, nil
}

// ListParticipants retrieves a study's participants with pagination.
func (s *SessionService) ListParticipants(ctx context.Context, studyID uuid.UUID, page, perPage int) ([]model.Participant, int64, error) {
	return s.participantRepo.ListByStudy(ctx, studyID, page, perPage)
}

// RecordConsent stamps informed consent on the participant record. The phase
// engine refuses to leave the consent phase until this has happened.
func (s *SessionService) RecordConsent(ctx context.Context, participantID uuid.UUID) error {
	return s.participantRepo.RecordConsent(ctx, participantID, time.Now())
}

// Withdraw flags a participant as withdrawn and terminates their active
// session if one exists. Their data stays in place until a privacy operation
// removes it.
func (s *SessionService) Withdraw(ctx context.Context, participantID uuid.UUID) error {
	if err := s.participantRepo.MarkWithdrawn(ctx, participantID, time.Now()); err != nil {
		return err
	}

	session, err := s.sessionRepo.GetActiveByParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("get active session: %w", err)
	}
	return s.TerminateSession(ctx, session.ID)
}

// StartSession opens a new active session in the consent phase. The partial
// unique index turns a concurrent second start into ErrSessionAlreadyActive.
func (s *SessionService) StartSession(ctx context.Context, participantID uuid.UUID) (*model.StudySession, error) {
	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if participant.Withdrawn {
		return nil, ErrParticipantWithdrawn
	}

	session := &model.StudySession{ParticipantID: participantID, CurrentPhase: model.PhaseConsent, IsActive: true}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSessionAlreadyActive
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.cacheActiveSession(ctx, participantID, session.ID)
	s.recordLifecycleEvent(ctx, session, model.EventTypeSessionStarted)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("anonymized_id", participant.AnonymizedID).
		Msg("Study session started")

	return session, nil
}

// GetActiveSession resolves the participant's active session, trying the
// cache first and falling back to the database with a cache self-heal.
func (s *SessionService) GetActiveSession(ctx context.Context, participantID uuid.UUID) (*model.StudySession, error) {
	key := config.CacheKey.ActiveSessionKey(participantID.String())

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if sessionID, err := uuid.Parse(cached); err == nil {
			session, err := s.sessionRepo.GetByID(ctx, sessionID)
			if err == nil && session.IsActive {
				return session, nil
			}
			// Stale entry, drop it and fall through to the database.
			s.rdb.Del(ctx, key)
		}
	}

	session, err := s.sessionRepo.GetActiveByParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotActive
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}

	s.cacheActiveSession(ctx, participantID, session.ID)
	return session, nil
}

// TerminateSession ends a session without completing the study. Used for
// dropouts and withdrawal.
func (s *SessionService) TerminateSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	if !session.IsActive {
		return ErrSessionNotActive
	}

	if err := s.sessionRepo.Terminate(ctx, sessionID); err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}

	s.rdb.Del(ctx, config.CacheKey.ActiveSessionKey(session.ParticipantID.String()))
	s.recordLifecycleEvent(ctx, session, model.EventTypeSessionEnded)

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("last_phase", string(session.CurrentPhase)).
		Msg("Study session terminated")

	return nil
}

// GetSessionSummary returns the interaction aggregates of one session.
func (s *SessionService) GetSessionSummary(ctx context.Context, sessionID uuid.UUID) (*repository.SessionSummary, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s.logRepo.SummarizeSession(ctx, session.ParticipantID, session.ID)
}

func (s *SessionService) cacheActiveSession(ctx context.Context, participantID, sessionID uuid.UUID) {
	key := config.CacheKey.ActiveSessionKey(participantID.String())
	if err := s.rdb.Set(ctx, key, sessionID.String(), activeSessionTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Cache active session failed")
	}
}

// recordLifecycleEvent appends a session_started/session_ended event. Best
// effort: the session state change has already been committed.
func (s *SessionService) recordLifecycleEvent(ctx context.Context, session *model.StudySession, eventType string) {
	payload, _ := json.Marshal(map[string]string{"phase": string(session.CurrentPhase)})
	event := &model.InteractionLog{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
	if err := s.logRepo.Insert(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("Record lifecycle event failed")
	}
}
