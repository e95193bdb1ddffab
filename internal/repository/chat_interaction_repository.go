package repository

import (
	"context"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatInteractionRepository handles chat message data access.
type ChatInteractionRepository struct {
	pool *pgxpool.Pool
}

// NewChatInteractionRepository creates a new ChatInteractionRepository.
func NewChatInteractionRepository(pool *pgxpool.Pool) *ChatInteractionRepository {
	return &ChatInteractionRepository{pool: pool}
}

// Insert appends a chat message.
func (r *ChatInteractionRepository) Insert(ctx context.Context, m *model.ChatInteraction) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO chat_interactions (participant_id, session_id, role, content, content_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		m.ParticipantID, m.SessionID, m.Role, m.Content, m.ContentHash,
	).Scan(&m.ID, &m.CreatedAt)
}

// ListByParticipant retrieves a participant's chat history in order.
func (r *ChatInteractionRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.ChatInteraction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, session_id, role, content, content_hash, created_at
		 FROM chat_interactions
		 WHERE participant_id = $1
		 ORDER BY created_at ASC, id ASC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.ChatInteraction
	for rows.Next() {
		var m model.ChatInteraction
		if err := rows.Scan(&m.ID, &m.ParticipantID, &m.SessionID, &m.Role, &m.Content, &m.ContentHash, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
