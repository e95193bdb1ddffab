package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionSummary is the aggregate exposed to analytics consumers.
type SessionSummary struct {
	ParticipantID     uuid.UUID        `json:"participant_id"`
	SessionID         uuid.UUID        `json:"session_id"`
	TotalInteractions int64            `json:"total_interactions"`
	CountsByType      map[string]int64 `json:"counts_by_type"`
	FirstInteraction  *time.Time       `json:"first_interaction,omitempty"`
	LastInteraction   *time.Time       `json:"last_interaction,omitempty"`
}

// InteractionLogRepository handles the append-only interaction event log.
type InteractionLogRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionLogRepository creates a new InteractionLogRepository.
func NewInteractionLogRepository(pool *pgxpool.Pool) *InteractionLogRepository {
	return &InteractionLogRepository{pool: pool}
}

// Insert appends a single event.
func (r *InteractionLogRepository) Insert(ctx context.Context, e *model.InteractionLog) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO interaction_logs (participant_id, session_id, event_type, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.ParticipantID, e.SessionID, e.EventType, e.Payload, e.OccurredAt,
	).Scan(&e.ID)
}

// InsertTx appends a single event inside the caller's transaction. Used by
// the phase engine so the audit event commits or rolls back with the
// session update.
func (r *InteractionLogRepository) InsertTx(ctx context.Context, tx pgx.Tx, e *model.InteractionLog) error {
	return tx.QueryRow(ctx,
		`INSERT INTO interaction_logs (participant_id, session_id, event_type, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.ParticipantID, e.SessionID, e.EventType, e.Payload, e.OccurredAt,
	).Scan(&e.ID)
}

// BulkInsert appends a batch of events with a single UNNEST statement.
func (r *InteractionLogRepository) BulkInsert(ctx context.Context, events []*model.InteractionLog) error {
	n := len(events)
	if n == 0 {
		return nil
	}

	participantIDs := make([]uuid.UUID, 0, n)
	sessionIDs := make([]uuid.UUID, 0, n)
	eventTypes := make([]string, 0, n)
	payloads := make([][]byte, 0, n)
	occurredAts := make([]time.Time, 0, n)

	for _, e := range events {
		payload := e.Payload
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		participantIDs = append(participantIDs, e.ParticipantID)
		sessionIDs = append(sessionIDs, e.SessionID)
		eventTypes = append(eventTypes, e.EventType)
		payloads = append(payloads, payload)
		occurredAts = append(occurredAts, e.OccurredAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO interaction_logs (participant_id, session_id, event_type, payload, occurred_at)
		 SELECT * FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::jsonb[],
			$5::timestamptz[]
		 )`,
		participantIDs, sessionIDs, eventTypes, payloads, occurredAts)
	return err
}

// ListByParticipant retrieves every event of a participant in order,
// used by the privacy export.
func (r *InteractionLogRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.InteractionLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, session_id, event_type, payload, occurred_at
		 FROM interaction_logs
		 WHERE participant_id = $1
		 ORDER BY occurred_at ASC, id ASC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.InteractionLog
	for rows.Next() {
		var e model.InteractionLog
		if err := rows.Scan(&e.ID, &e.ParticipantID, &e.SessionID, &e.EventType, &e.Payload, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SummarizeSession aggregates the analytics summary for a session.
func (r *InteractionLogRepository) SummarizeSession(ctx context.Context, participantID, sessionID uuid.UUID) (*SessionSummary, error) {
	summary := &SessionSummary{
		ParticipantID: participantID,
		SessionID:     sessionID,
		CountsByType:  make(map[string]int64),
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(occurred_at), MAX(occurred_at)
		 FROM interaction_logs
		 WHERE session_id = $1`, sessionID,
	).Scan(&summary.TotalInteractions, &summary.FirstInteraction, &summary.LastInteraction)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT event_type, COUNT(*)
		 FROM interaction_logs
		 WHERE session_id = $1
		 GROUP BY event_type`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		summary.CountsByType[eventType] = count
	}
	return summary, rows.Err()
}
