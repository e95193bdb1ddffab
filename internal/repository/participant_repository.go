package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const participantColumns = `id, study_id, anonymized_id, email, display_name, age_group, education_level,
	 condition, consent_given, consent_timestamp, withdrawn, withdrawn_at,
	 is_anonymized, anonymized_at, created_at, updated_at`

// ParticipantRepository handles participant data access.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

func scanParticipant(row interface{ Scan(...any) error }) (*model.Participant, error) {
	p := &model.Participant{}
	err := row.Scan(
		&p.ID, &p.StudyID, &p.AnonymizedID, &p.Email, &p.DisplayName, &p.AgeGroup, &p.EducationLevel,
		&p.Condition, &p.ConsentGiven, &p.ConsentTimestamp, &p.Withdrawn, &p.WithdrawnAt,
		&p.IsAnonymized, &p.AnonymizedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new participant at enrollment.
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO participants (study_id, anonymized_id, email, display_name, age_group, education_level, condition)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.StudyID, p.AnonymizedID, p.Email, p.DisplayName, p.AgeGroup, p.EducationLevel, p.Condition,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID retrieves a participant by primary key.
func (r *ParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	return scanParticipant(r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, id))
}

// ListByStudy retrieves participants of a study with pagination.
func (r *ParticipantRepository) ListByStudy(ctx context.Context, studyID uuid.UUID, page, perPage int) ([]model.Participant, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE study_id = $1`, studyID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+participantColumns+`
		 FROM participants
		 WHERE study_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2 OFFSET $3`, studyID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, 0, err
		}
		participants = append(participants, *p)
	}
	return participants, total, rows.Err()
}

// RecordConsent sets the consent flag and timestamp.
func (r *ParticipantRepository) RecordConsent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET consent_given = TRUE, consent_timestamp = $1, updated_at = NOW()
		 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s not found", id)
	}
	return nil
}

// MarkWithdrawn flags a participant as withdrawn from the study.
func (r *ParticipantRepository) MarkWithdrawn(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants
		 SET withdrawn = TRUE, withdrawn_at = $1, updated_at = NOW()
		 WHERE id = $2 AND NOT withdrawn`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s not found or already withdrawn", id)
	}
	return nil
}

// RetentionCandidates returns participants created before the cutoff that
// have not been anonymized, optionally restricted to one study.
func (r *ParticipantRepository) RetentionCandidates(ctx context.Context, studyID *uuid.UUID, cutoff time.Time) ([]model.Participant, error) {
	query := `SELECT ` + participantColumns + `
		 FROM participants
		 WHERE created_at < $1 AND NOT is_anonymized`
	args := []any{cutoff}
	if studyID != nil {
		args = append(args, *studyID)
		query += ` AND study_id = $2`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *p)
	}
	return candidates, rows.Err()
}
