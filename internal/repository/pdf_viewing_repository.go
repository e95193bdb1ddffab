package repository

import (
	"context"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PDFViewingRepository handles per-page PDF reading telemetry.
type PDFViewingRepository struct {
	pool *pgxpool.Pool
}

// NewPDFViewingRepository creates a new PDFViewingRepository.
func NewPDFViewingRepository(pool *pgxpool.Pool) *PDFViewingRepository {
	return &PDFViewingRepository{pool: pool}
}

// RecordView upserts a page view: the first visit inserts the row, repeat
// visits accumulate time and bump the visit count.
func (r *PDFViewingRepository) RecordView(ctx context.Context, v *model.PDFViewingBehavior) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO pdf_viewing_behaviors
		   (participant_id, session_id, page_number, time_spent_seconds, visit_count, last_viewed_at)
		 VALUES ($1, $2, $3, $4, 1, NOW())
		 ON CONFLICT (session_id, page_number) DO UPDATE SET
		   time_spent_seconds = pdf_viewing_behaviors.time_spent_seconds + EXCLUDED.time_spent_seconds,
		   visit_count = pdf_viewing_behaviors.visit_count + 1,
		   last_viewed_at = NOW()
		 RETURNING id, time_spent_seconds, visit_count, last_viewed_at`,
		v.ParticipantID, v.SessionID, v.PageNumber, v.TimeSpentSeconds,
	).Scan(&v.ID, &v.TimeSpentSeconds, &v.VisitCount, &v.LastViewedAt)
}

// ListByParticipant retrieves a participant's page-view rows.
func (r *PDFViewingRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.PDFViewingBehavior, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, session_id, page_number, time_spent_seconds, visit_count, last_viewed_at
		 FROM pdf_viewing_behaviors
		 WHERE participant_id = $1
		 ORDER BY session_id, page_number`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []model.PDFViewingBehavior
	for rows.Next() {
		var v model.PDFViewingBehavior
		if err := rows.Scan(&v.ID, &v.ParticipantID, &v.SessionID, &v.PageNumber, &v.TimeSpentSeconds, &v.VisitCount, &v.LastViewedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
