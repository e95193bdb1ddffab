package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizType distinguishes the pre- and post-intervention questionnaires.
type QuizType string

const (
	QuizTypePre  QuizType = "pre"
	QuizTypePost QuizType = "post"
)

// QuizResponse is one answered quiz question.
type QuizResponse struct {
	ID            int64     `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	SessionID     uuid.UUID `json:"session_id"`
	QuizType      QuizType  `json:"quiz_type"`
	QuestionID    string    `json:"question_id"`
	ResponseText  string    `json:"response_text"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// RecordQuizResponseRequest is the payload for recording a quiz answer.
type RecordQuizResponseRequest struct {
	SessionID    string `json:"session_id" binding:"required,uuid"`
	QuizType     string `json:"quiz_type" binding:"required,oneof=pre post"`
	QuestionID   string `json:"question_id" binding:"required,min=1,max=80"`
	ResponseText string `json:"response_text" binding:"required"`
	IsCorrect    *bool  `json:"is_correct,omitempty"`
}
