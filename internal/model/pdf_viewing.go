package model

import (
	"time"

	"github.com/google/uuid"
)

// PDFViewingBehavior accumulates per-page reading telemetry in the PDF
// condition. One row per (session, page); repeat visits add time and bump
// the visit count rather than inserting new rows.
type PDFViewingBehavior struct {
	ID               int64     `json:"id"`
	ParticipantID    uuid.UUID `json:"participant_id"`
	SessionID        uuid.UUID `json:"session_id"`
	PageNumber       int       `json:"page_number"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	VisitCount       int       `json:"visit_count"`
	LastViewedAt     time.Time `json:"last_viewed_at"`
}

// RecordPageViewRequest is the payload for recording a PDF page view.
type RecordPageViewRequest struct {
	SessionID        string `json:"session_id" binding:"required,uuid"`
	PageNumber       int    `json:"page_number" binding:"required,min=1"`
	TimeSpentSeconds int64  `json:"time_spent_seconds" binding:"min=0"`
}
