package repository

import (
	"context"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, participant_id, current_phase, is_active, is_completed, started_at, ended_at,
	 consent_started_at, consent_ended_at, consent_duration_seconds, consent_completed, consent_completed_at,
	 pre_quiz_started_at, pre_quiz_ended_at, pre_quiz_duration_seconds, pre_quiz_completed, pre_quiz_completed_at,
	 interaction_started_at, interaction_ended_at, interaction_duration_seconds, interaction_completed, interaction_completed_at,
	 post_quiz_started_at, post_quiz_ended_at, post_quiz_duration_seconds, post_quiz_completed, post_quiz_completed_at,
	 created_at, updated_at`

// StudySessionRepository handles study session data access. Mutations that
// must be atomic with other writes (the phase transition) take an explicit
// pgx.Tx so the caller owns the transaction boundary.
type StudySessionRepository struct {
	pool *pgxpool.Pool
}

// NewStudySessionRepository creates a new StudySessionRepository.
func NewStudySessionRepository(pool *pgxpool.Pool) *StudySessionRepository {
	return &StudySessionRepository{pool: pool}
}

func scanSession(row interface{ Scan(...any) error }) (*model.StudySession, error) {
	s := &model.StudySession{}
	err := row.Scan(
		&s.ID, &s.ParticipantID, &s.CurrentPhase, &s.IsActive, &s.IsCompleted, &s.StartedAt, &s.EndedAt,
		&s.Consent.StartedAt, &s.Consent.EndedAt, &s.Consent.DurationSeconds, &s.Consent.Completed, &s.Consent.CompletedAt,
		&s.PreQuiz.StartedAt, &s.PreQuiz.EndedAt, &s.PreQuiz.DurationSeconds, &s.PreQuiz.Completed, &s.PreQuiz.CompletedAt,
		&s.Interaction.StartedAt, &s.Interaction.EndedAt, &s.Interaction.DurationSeconds, &s.Interaction.Completed, &s.Interaction.CompletedAt,
		&s.PostQuiz.StartedAt, &s.PostQuiz.EndedAt, &s.PostQuiz.DurationSeconds, &s.PostQuiz.Completed, &s.PostQuiz.CompletedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new active session opening the consent phase. The partial
// unique index on (participant_id) WHERE is_active makes a second concurrent
// start fail with a unique violation.
func (r *StudySessionRepository) Create(ctx context.Context, s *model.StudySession) error {
	now := time.Now()
	return r.pool.QueryRow(ctx,
		`INSERT INTO study_sessions (participant_id, current_phase, is_active, started_at, consent_started_at)
		 VALUES ($1, $2, TRUE, $3, $3)
		 RETURNING id, started_at, consent_started_at, created_at, updated_at`,
		s.ParticipantID, model.PhaseConsent, now,
	).Scan(&s.ID, &s.StartedAt, &s.Consent.StartedAt, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a session by primary key.
func (r *StudySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StudySession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, id))
}

// GetActiveByParticipant retrieves the participant's single active session.
func (r *StudySessionRepository) GetActiveByParticipant(ctx context.Context, participantID uuid.UUID) (*model.StudySession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions
		 WHERE participant_id = $1 AND is_active`, participantID))
}

// ListByParticipant retrieves all sessions for a participant.
func (r *StudySessionRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.StudySession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions
		 WHERE participant_id = $1
		 ORDER BY started_at ASC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetForUpdate loads a session inside tx under a row-level lock, serializing
// concurrent phase transitions on the same session.
func (r *StudySessionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.StudySession, error) {
	return scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1 FOR UPDATE`, id))
}

// SaveProgress persists the full phase/completion state of a session inside
// the caller's transaction.
func (r *StudySessionRepository) SaveProgress(ctx context.Context, tx pgx.Tx, s *model.StudySession) error {
	_, err := tx.Exec(ctx,
		`UPDATE study_sessions SET
		   current_phase = $2, is_active = $3, is_completed = $4, ended_at = $5,
		   consent_started_at = $6, consent_ended_at = $7, consent_duration_seconds = $8,
		   consent_completed = $9, consent_completed_at = $10,
		   pre_quiz_started_at = $11, pre_quiz_ended_at = $12, pre_quiz_duration_seconds = $13,
		   pre_quiz_completed = $14, pre_quiz_completed_at = $15,
		   interaction_started_at = $16, interaction_ended_at = $17, interaction_duration_seconds = $18,
		   interaction_completed = $19, interaction_completed_at = $20,
		   post_quiz_started_at = $21, post_quiz_ended_at = $22, post_quiz_duration_seconds = $23,
		   post_quiz_completed = $24, post_quiz_completed_at = $25,
		   updated_at = NOW()
		 WHERE id = $1`,
		s.ID, s.CurrentPhase, s.IsActive, s.IsCompleted, s.EndedAt,
		s.Consent.StartedAt, s.Consent.EndedAt, s.Consent.DurationSeconds, s.Consent.Completed, s.Consent.CompletedAt,
		s.PreQuiz.StartedAt, s.PreQuiz.EndedAt, s.PreQuiz.DurationSeconds, s.PreQuiz.Completed, s.PreQuiz.CompletedAt,
		s.Interaction.StartedAt, s.Interaction.EndedAt, s.Interaction.DurationSeconds, s.Interaction.Completed, s.Interaction.CompletedAt,
		s.PostQuiz.StartedAt, s.PostQuiz.EndedAt, s.PostQuiz.DurationSeconds, s.PostQuiz.Completed, s.PostQuiz.CompletedAt,
	)
	return err
}

// Terminate ends a session without completing the study (explicit dropout).
func (r *StudySessionRepository) Terminate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE study_sessions
		 SET is_active = FALSE, ended_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND is_active`, id)
	return err
}
