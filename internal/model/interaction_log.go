package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Interaction event types written by the platform itself. Frontend-originated
// events carry free-form types (button_click, page_focus, ...).
const (
	EventTypePhaseTransition = "phase_transition"
	EventTypeSessionStarted  = "session_started"
	EventTypeSessionEnded    = "session_ended"
	EventTypeChatMessage     = "chat_message"
	EventTypePDFPageView     = "pdf_page_view"
	EventTypeQuizAnswer      = "quiz_answer"
)

// InteractionLog is one append-only behavioral event. Rows are immutable once
// written; anonymization rewrites the payload in place but never the shape.
type InteractionLog struct {
	ID            int64           `json:"id"`
	ParticipantID uuid.UUID       `json:"participant_id"`
	SessionID     uuid.UUID       `json:"session_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// LogEventRequest is the payload for recording a frontend interaction event.
type LogEventRequest struct {
	SessionID  string         `json:"session_id" binding:"required,uuid"`
	EventType  string         `json:"event_type" binding:"required,min=1,max=60"`
	Payload    map[string]any `json:"payload"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
}
