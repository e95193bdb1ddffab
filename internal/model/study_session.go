package model

import (
	"time"

	"github.com/google/uuid"
)

// PhaseProgress holds the duration bookkeeping for a single protocol phase.
// DurationSeconds is an accumulator in whole seconds; Completed becomes true
// exactly once, when the phase is exited.
type PhaseProgress struct {
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// StudySession represents one enrollment's pass through the study protocol.
// At most one session per participant is active at a time (enforced by a
// partial unique index).
type StudySession struct {
	ID            uuid.UUID  `json:"id"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	CurrentPhase  Phase      `json:"current_phase"`
	IsActive      bool       `json:"is_active"`
	IsCompleted   bool       `json:"is_completed"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`

	Consent     PhaseProgress `json:"consent"`
	PreQuiz     PhaseProgress `json:"pre_quiz"`
	Interaction PhaseProgress `json:"interaction"`
	PostQuiz    PhaseProgress `json:"post_quiz"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress returns the bookkeeping slot for a tracked phase, or nil for
// PhaseCompleted and unknown phases.
func (s *StudySession) Progress(p Phase) *PhaseProgress {
	switch p {
	case PhaseConsent:
		return &s.Consent
	case PhasePreQuiz:
		return &s.PreQuiz
	case PhaseInteraction:
		return &s.Interaction
	case PhasePostQuiz:
		return &s.PostQuiz
	default:
		return nil
	}
}

// AllPhasesCompleted reports whether every tracked phase's completion flag is
// set. Study completion is permitted only when this holds.
func (s *StudySession) AllPhasesCompleted() bool {
	for _, p := range TrackedPhases {
		if !s.Progress(p).Completed {
			return false
		}
	}
	return true
}

// TransitionRequest is the payload for a phase-transition call from the
// session frontend.
type TransitionRequest struct {
	NewPhase        Phase      `json:"new_phase" binding:"required"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
}
