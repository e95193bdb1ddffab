package repository

import (
	"context"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuizResponseRepository handles quiz answer data access.
type QuizResponseRepository struct {
	pool *pgxpool.Pool
}

// NewQuizResponseRepository creates a new QuizResponseRepository.
func NewQuizResponseRepository(pool *pgxpool.Pool) *QuizResponseRepository {
	return &QuizResponseRepository{pool: pool}
}

// Insert appends a quiz answer.
func (r *QuizResponseRepository) Insert(ctx context.Context, q *model.QuizResponse) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_responses (participant_id, session_id, quiz_type, question_id, response_text, is_correct)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, answered_at`,
		q.ParticipantID, q.SessionID, q.QuizType, q.QuestionID, q.ResponseText, q.IsCorrect,
	).Scan(&q.ID, &q.AnsweredAt)
}

// ListByParticipant retrieves a participant's quiz answers in order.
func (r *QuizResponseRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.QuizResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, session_id, quiz_type, question_id, response_text, is_correct, answered_at
		 FROM quiz_responses
		 WHERE participant_id = $1
		 ORDER BY answered_at ASC, id ASC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.QuizResponse
	for rows.Next() {
		var q model.QuizResponse
		if err := rows.Scan(&q.ID, &q.ParticipantID, &q.SessionID, &q.QuizType, &q.QuestionID, &q.ResponseText, &q.IsCorrect, &q.AnsweredAt); err != nil {
			return nil, err
		}
		responses = append(responses, q)
	}
	return responses, rows.Err()
}
