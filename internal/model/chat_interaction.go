package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole distinguishes who produced a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatInteraction is one message exchanged in the chat condition. Content is
// immutable except for anonymization, which replaces it with a
// length-preserving marker. ContentHash supports deduplication.
type ChatInteraction struct {
	ID            int64     `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	SessionID     uuid.UUID `json:"session_id"`
	Role          ChatRole  `json:"role"`
	Content       string    `json:"content"`
	ContentHash   string    `json:"content_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecordChatRequest is the payload for recording a chat message.
type RecordChatRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
	Role      string `json:"role" binding:"required,oneof=user assistant"`
	Content   string `json:"content" binding:"required,min=1"`
}
