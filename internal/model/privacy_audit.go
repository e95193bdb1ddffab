package model

import (
	"encoding/json"
	"time"
)

// PrivacyAction enumerates auditable privacy operations.
type PrivacyAction string

const (
	PrivacyActionAnonymize PrivacyAction = "anonymize"
	PrivacyActionDelete    PrivacyAction = "delete"
	PrivacyActionExport    PrivacyAction = "export"
)

// PrivacyAuditLog records one privacy operation. It is keyed by the
// participant's anonymized ID rather than a foreign key so the audit trail
// survives a right-to-be-forgotten deletion.
type PrivacyAuditLog struct {
	ID           int64           `json:"id"`
	AnonymizedID string          `json:"anonymized_id"`
	Action       PrivacyAction   `json:"action"`
	Reason       string          `json:"reason"`
	Actor        string          `json:"actor"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
