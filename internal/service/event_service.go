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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QueuedEvent is the wire form of an interaction event on the Redis ingest
// queue. The ingest worker drains these into interaction_logs in batches.
type QueuedEvent struct {
	ParticipantID uuid.UUID       `json:"participant_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EventService captures behavioral telemetry: free-form frontend events go
// through the Redis queue, condition-specific records (chat, PDF, quiz) are
// written synchronously with a mirrored queue event.
type EventService struct {
	sessionRepo *repository.StudySessionRepository
	logRepo     *repository.InteractionLogRepository
	chatRepo    *repository.ChatInteractionRepository
	pdfRepo     *repository.PDFViewingRepository
	quizRepo    *repository.QuizResponseRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(
	sessionRepo *repository.StudySessionRepository,
	logRepo *repository.InteractionLogRepository,
	chatRepo *repository.ChatInteractionRepository,
	pdfRepo *repository.PDFViewingRepository,
	quizRepo *repository.QuizResponseRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		sessionRepo: sessionRepo,
		logRepo:     logRepo,
		chatRepo:    chatRepo,
		pdfRepo:     pdfRepo,
		quizRepo:    quizRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "event_service").Logger(),
	}
}

// resolveActiveSession maps a session ID from a request to its row, rejecting
// inactive sessions. Telemetry is only accepted while the session runs.
func (s *EventService) resolveActiveSession(ctx context.Context, rawSessionID string) (*model.StudySession, error) {
	sessionID, err := uuid.Parse(rawSessionID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.IsActive {
		return nil, ErrSessionNotActive
	}
	return session, nil
}

// LogEvent enqueues a free-form frontend event for batched ingestion. If the
// queue is unreachable the event is written directly so nothing is lost.
func (s *EventService) LogEvent(ctx context.Context, req *model.LogEventRequest) error {
	session, err := s.resolveActiveSession(ctx, req.SessionID)
	if err != nil {
		return err
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	payload := json.RawMessage(`{}`)
	if req.Payload != nil {
		if payload, err = json.Marshal(req.Payload); err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	return s.enqueue(ctx, &QueuedEvent{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		EventType:     req.EventType,
		Payload:       payload,
		OccurredAt:    occurredAt,
	})
}

// RecordChat stores a chat message and mirrors it onto the event queue. The
// mirror carries the content hash and length, never the text itself.
func (s *EventService) RecordChat(ctx context.Context, req *model.RecordChatRequest) (*model.ChatInteraction, error) {
	session, err := s.resolveActiveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	message := &model.ChatInteraction{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		Role:          model.ChatRole(req.Role),
		Content:       req.Content,
		ContentHash:   privacy.ContentHash(req.Content),
	}
	if err := s.chatRepo.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}

	s.mirrorEvent(ctx, session, model.EventTypeChatMessage, map[string]any{
		"role":           req.Role,
		"content_hash":   message.ContentHash,
		"content_length": len([]rune(req.Content)),
	})
	return message, nil
}

// RecordPageView upserts per-page PDF telemetry and mirrors the view onto the
// event queue.
func (s *EventService) RecordPageView(ctx context.Context, req *model.RecordPageViewRequest) (*model.PDFViewingBehavior, error) {
	session, err := s.resolveActiveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	view := &model.PDFViewingBehavior{
		ParticipantID:    session.ParticipantID,
		SessionID:        session.ID,
		PageNumber:       req.PageNumber,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	if err := s.pdfRepo.RecordView(ctx, view); err != nil {
		return nil, fmt.Errorf("record page view: %w", err)
	}

	s.mirrorEvent(ctx, session, model.EventTypePDFPageView, map[string]any{
		"page_number":        req.PageNumber,
		"time_spent_seconds": req.TimeSpentSeconds,
	})
	return view, nil
}

// RecordQuizResponse stores a quiz answer and mirrors it onto the event
// queue.
func (s *EventService) RecordQuizResponse(ctx context.Context, req *model.RecordQuizResponseRequest) (*model.QuizResponse, error) {
	session, err := s.resolveActiveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	answer := &model.QuizResponse{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		QuizType:      model.QuizType(req.QuizType),
		QuestionID:    req.QuestionID,
		ResponseText:  req.ResponseText,
		IsCorrect:     req.IsCorrect,
	}
	if err := s.quizRepo.Insert(ctx, answer); err != nil {
		return nil, fmt.Errorf("insert quiz response: %w", err)
	}

	s.mirrorEvent(ctx, session, model.EventTypeQuizAnswer, map[string]any{
		"quiz_type":   req.QuizType,
		"question_id": req.QuestionID,
	})
	return answer, nil
}

// enqueue pushes one event onto the ingest queue, falling back to a direct
// insert when Redis is unavailable.
func (s *EventService) enqueue(ctx context.Context, event *QueuedEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.InteractionEventsQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Queue push failed, inserting event directly")
		return s.logRepo.Insert(ctx, &model.InteractionLog{
			ParticipantID: event.ParticipantID,
			SessionID:     event.SessionID,
			EventType:     event.EventType,
			Payload:       event.Payload,
			OccurredAt:    event.OccurredAt,
		})
	}
	return nil
}

// mirrorEvent enqueues the interaction-log mirror of a condition-specific
// record. Best effort: the primary record is already stored.
func (s *EventService) mirrorEvent(ctx context.Context, session *model.StudySession, eventType string, payload map[string]any) {
	raw, _ := json.Marshal(payload)
	if err := s.enqueue(ctx, &QueuedEvent{
		ParticipantID: session.ParticipantID,
		SessionID:     session.ID,
		EventType:     eventType,
		Payload:       raw,
		OccurredAt:    time.Now(),
	}); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("Mirror event failed")
	}
}
