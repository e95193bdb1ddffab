package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/privacy"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Privacy service errors.
var (
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrAlreadyAnonymized       = errors.New("participant already anonymized")
	ErrAlreadyDeleted          = errors.New("participant already deleted")
	ErrConfirmationMismatch    = errors.New("confirmation token does not match the participant's anonymized id")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)

// deletionCollaborator is one entry of the ordered cascade executed by
// Delete. Keeping the surface as an explicit list makes the deletion
// auditable and easy to extend when a new data category is added.
type deletionCollaborator struct {
	Category string
	Query    string
}

// deletionOrder lists every table holding participant data, children first.
// The participant row itself is always last.
var deletionOrder = []deletionCollaborator{
	{"interaction_logs", `DELETE FROM interaction_logs WHERE participant_id = $1`},
	{"chat_interactions", `DELETE FROM chat_interactions WHERE participant_id = $1`},
	{"pdf_viewing_behaviors", `DELETE FROM pdf_viewing_behaviors WHERE participant_id = $1`},
	{"quiz_responses", `DELETE FROM quiz_responses WHERE participant_id = $1`},
	{"study_sessions", `DELETE FROM study_sessions WHERE participant_id = $1`},
	{"participants", `DELETE FROM participants WHERE id = $1`},
}

// AnonymizeResult reports what one anonymization touched.
type AnonymizeResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	AnonymizedID  string    `json:"anonymized_id"`
	ChatScrubbed  int64     `json:"chat_messages_scrubbed"`
	EventsScanned int64     `json:"events_scanned"`
	EventsChanged int64     `json:"events_redacted"`
}

// DeleteResult reports per-category deleted-row counts.
type DeleteResult struct {
	ParticipantID uuid.UUID        `json:"participant_id"`
	AnonymizedID  string           `json:"anonymized_id"`
	DeletedCounts map[string]int64 `json:"deleted_counts"`
	TotalDeleted  int64            `json:"total_deleted"`
}

// PrivacyService implements the data-protection operations: anonymize,
// delete, export, retention sweep and compliance reporting. Single-subject
// mutations are strictly transactional; batch operations isolate failures
// per member.
type PrivacyService struct {
	cfg             *config.Config
	pool            *pgxpool.Pool
	participantRepo *repository.ParticipantRepository
	sessionRepo     *repository.StudySessionRepository
	logRepo         *repository.InteractionLogRepository
	chatRepo        *repository.ChatInteractionRepository
	pdfRepo         *repository.PDFViewingRepository
	quizRepo        *repository.QuizResponseRepository
	auditRepo       *repository.PrivacyAuditRepository
	studyRepo       *repository.StudyRepository
	log             zerolog.Logger
}

// NewPrivacyService creates a new PrivacyService.
func NewPrivacyService(
	cfg *config.Config,
	pool *pgxpool.Pool,
	participantRepo *repository.ParticipantRepository,
	sessionRepo *repository.StudySessionRepository,
	logRepo *repository.InteractionLogRepository,
	chatRepo *repository.ChatInteractionRepository,
	pdfRepo *repository.PDFViewingRepository,
	quizRepo *repository.QuizResponseRepository,
	auditRepo *repository.PrivacyAuditRepository,
	studyRepo *repository.StudyRepository,
	log zerolog.Logger,
) *PrivacyService {
	return &PrivacyService{
		cfg:             cfg,
		pool:            pool,
		participantRepo: participantRepo,
		sessionRepo:     sessionRepo,
		logRepo:         logRepo,
		chatRepo:        chatRepo,
		pdfRepo:         pdfRepo,
		quizRepo:        quizRepo,
		auditRepo:       auditRepo,
		studyRepo:       studyRepo,
		log:             log.With().Str("component", "privacy_service").Logger(),
	}
}

// lockParticipant loads the minimal participant state needed by a privacy
// mutation under a row lock.
func (s *PrivacyService) lockParticipant(ctx context.Context, tx pgx.Tx, id uuid.UUID) (anonymizedID string, isAnonymized bool, err error) {
	err = tx.QueryRow(ctx,
		`SELECT anonymized_id, is_anonymized FROM participants WHERE id = $1 FOR UPDATE`, id,
	).Scan(&anonymizedID, &isAnonymized)
	return anonymizedID, isAnonymized, err
}

// Anonymize irreversibly replaces a participant's identity fields with
// placeholders derived from the anonymized ID and scrubs free text from
// every dependent record. A second call fails with ErrAlreadyAnonymized and
// leaves nothing half re-anonymized.
func (s *PrivacyService) Anonymize(ctx context.Context, id uuid.UUID, reason, actor string) (*AnonymizeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin anonymize: %w", err)
	}
	defer tx.Rollback(ctx)

	anonymizedID, isAnonymized, err := s.lockParticipant(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("lock participant: %w", err)
	}
	if isAnonymized {
		return nil, ErrAlreadyAnonymized
	}

	now := time.Now()
	res := &AnonymizeResult{ParticipantID: id, AnonymizedID: anonymizedID}

	// Identity fields become deterministic placeholders.
	if _, err := tx.Exec(ctx,
		`UPDATE participants
		 SET email = $1, display_name = $2, is_anonymized = TRUE, anonymized_at = $3, updated_at = $3
		 WHERE id = $4`,
		privacy.PlaceholderEmail(anonymizedID), privacy.PlaceholderName(anonymizedID), now, id,
	); err != nil {
		return nil, fmt.Errorf("anonymize identity: %w", err)
	}

	// Chat content is replaced by a length-preserving marker in one pass.
	tag, err := tx.Exec(ctx,
		`UPDATE chat_interactions
		 SET content = '[ANONYMIZED_' || char_length(content) || '_CHARS]'
		 WHERE participant_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("scrub chat content: %w", err)
	}
	res.ChatScrubbed = tag.RowsAffected()

	// Event payloads go through the allow-list redactor row by row.
	scanned, changed, err := s.redactEventPayloads(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	res.EventsScanned, res.EventsChanged = scanned, changed

	details, _ := json.Marshal(map[string]any{
		"participant_id":         id,
		"chat_messages_scrubbed": res.ChatScrubbed,
		"events_redacted":        res.EventsChanged,
	})
	if err := s.auditRepo.InsertTx(ctx, tx, &model.PrivacyAuditLog{
		AnonymizedID: anonymizedID,
		Action:       model.PrivacyActionAnonymize,
		Reason:       reason,
		Actor:        actor,
		Details:      details,
	}); err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit anonymize: %w", err)
	}

	s.log.Info().
		Str("anonymized_id", anonymizedID).
		Int64("chat_scrubbed", res.ChatScrubbed).
		Int64("events_redacted", res.EventsChanged).
		Msg("Participant anonymized")

	return res, nil
}

// redactEventPayloads applies the redact-by-default allow-list to every
// interaction-log payload of the participant, inside the caller's
// transaction.
func (s *PrivacyService) redactEventPayloads(ctx context.Context, tx pgx.Tx, participantID uuid.UUID) (scanned, changed int64, err error) {
	rows, err := tx.Query(ctx,
		`SELECT id, event_type, payload FROM interaction_logs WHERE participant_id = $1`, participantID)
	if err != nil {
		return 0, 0, fmt.Errorf("load event payloads: %w", err)
	}

	type redactedRow struct {
		id      int64
		payload []byte
	}
	var updates []redactedRow

	for rows.Next() {
		var (
			rowID     int64
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&rowID, &eventType, &payload); err != nil {
			rows.Close()
			return 0, 0, err
		}
		scanned++

		redacted, didChange, err := privacy.RedactPayload(eventType, payload)
		if err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("redact payload %d: %w", rowID, err)
		}
		if didChange {
			updates = append(updates, redactedRow{id: rowID, payload: redacted})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	for _, u := range updates {
		if _, err := tx.Exec(ctx,
			`UPDATE interaction_logs SET payload = $1 WHERE id = $2`, u.payload, u.id); err != nil {
			return 0, 0, fmt.Errorf("update payload %d: %w", u.id, err)
		}
		changed++
	}
	return scanned, changed, nil
}

// Delete removes the participant and every transitively dependent row in one
// transaction, invoking the deletion collaborators in order. Any failure
// rolls back the whole cascade. The caller must confirm with the
// participant's anonymized ID. The audit entry, keyed by the anonymized ID
// rather than a foreign key to the deleted row, is the only trace left.
func (s *PrivacyService) Delete(ctx context.Context, id uuid.UUID, confirmationToken, reason, actor string) (*DeleteResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	anonymizedID, _, err := s.lockParticipant(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if s.wasDeleted(ctx, id) {
				return nil, ErrAlreadyDeleted
			}
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("lock participant: %w", err)
	}
	if confirmationToken != anonymizedID {
		return nil, ErrConfirmationMismatch
	}

	res := &DeleteResult{
		ParticipantID: id,
		AnonymizedID:  anonymizedID,
		DeletedCounts: make(map[string]int64, len(deletionOrder)),
	}

	for _, collaborator := range deletionOrder {
		tag, err := tx.Exec(ctx, collaborator.Query, id)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", collaborator.Category, err)
		}
		res.DeletedCounts[collaborator.Category] = tag.RowsAffected()
		res.TotalDeleted += tag.RowsAffected()
	}

	details, _ := json.Marshal(map[string]any{
		"participant_id": id,
		"deleted_counts": res.DeletedCounts,
	})
	if err := s.auditRepo.InsertTx(ctx, tx, &model.PrivacyAuditLog{
		AnonymizedID: anonymizedID,
		Action:       model.PrivacyActionDelete,
		Reason:       reason,
		Actor:        actor,
		Details:      details,
	}); err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}

	s.log.Info().
		Str("anonymized_id", anonymizedID).
		Int64("total_deleted", res.TotalDeleted).
		Msg("Participant deleted")

	return res, nil
}

// wasDeleted checks the audit trail for a prior deletion of this
// participant, distinguishing "already deleted" from "never existed".
func (s *PrivacyService) wasDeleted(ctx context.Context, id uuid.UUID) bool {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM privacy_audit_logs
		   WHERE action = $1 AND details->>'participant_id' = $2
		 )`, model.PrivacyActionDelete, id.String(),
	).Scan(&exists)
	return err == nil && exists
}
