package model

import (
	"time"

	"github.com/google/uuid"
)

// Condition is the learning intervention a participant is assigned to.
type Condition string

const (
	ConditionChat Condition = "chat"
	ConditionPDF  Condition = "pdf"
)

// Participant is the research-subject identity record. AnonymizedID is
// assigned at enrollment, is unique and never changes; it is the only
// identifier that survives anonymization and deletion (in audit entries).
type Participant struct {
	ID           uuid.UUID `json:"id"`
	StudyID      uuid.UUID `json:"study_id"`
	AnonymizedID string    `json:"anonymized_id"`

	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	AgeGroup       string    `json:"age_group,omitempty"`
	EducationLevel string    `json:"education_level,omitempty"`
	Condition      Condition `json:"condition"`

	ConsentGiven     bool       `json:"consent_given"`
	ConsentTimestamp *time.Time `json:"consent_timestamp,omitempty"`
	Withdrawn        bool       `json:"withdrawn"`
	WithdrawnAt      *time.Time `json:"withdrawn_at,omitempty"`
	IsAnonymized     bool       `json:"is_anonymized"`
	AnonymizedAt     *time.Time `json:"anonymized_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Study groups participants under one research protocol and carries the
// retention policy applied by the retention sweep.
type Study struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	RetentionYears int       `json:"retention_years"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// EnrollParticipantRequest is the payload for enrolling a new participant.
type EnrollParticipantRequest struct {
	StudyID        string `json:"study_id" binding:"required,uuid"`
	Email          string `json:"email" binding:"required,email"`
	DisplayName    string `json:"display_name" binding:"required,min=1,max=120"`
	AgeGroup       string `json:"age_group" binding:"omitempty,max=20"`
	EducationLevel string `json:"education_level" binding:"omitempty,max=60"`
	Condition      string `json:"condition" binding:"required,oneof=chat pdf"`
}
