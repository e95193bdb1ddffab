package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExportFormatJSON is the only supported export format; tabular rendering
// (CSV/XLSX) is a consumer concern.
const ExportFormatJSON = "json"

// ExportDocument is the structured snapshot of every data category tied to a
// participant. For anonymized participants all text fields are already the
// scrubbed representations stored in the database.
type ExportDocument struct {
	GeneratedAt   time.Time                  `json:"generated_at"`
	Format        string                     `json:"format"`
	IsAnonymized  bool                       `json:"is_anonymized"`
	Participant   *model.Participant         `json:"participant"`
	Sessions      []model.StudySession       `json:"sessions"`
	Interactions  []model.InteractionLog     `json:"interactions"`
	ChatMessages  []model.ChatInteraction    `json:"chat_messages"`
	PDFViews      []model.PDFViewingBehavior `json:"pdf_views"`
	QuizResponses []model.QuizResponse       `json:"quiz_responses"`
	AuditTrail    []model.PrivacyAuditLog    `json:"audit_trail"`
}

// RetentionCandidate is one member of a retention-sweep report.
type RetentionCandidate struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	AnonymizedID  string    `json:"anonymized_id"`
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"` // candidate | anonymized | skipped | failed
	Error         string    `json:"error,omitempty"`
}

// RetentionReport is the outcome of one retention sweep.
type RetentionReport struct {
	Cutoff     time.Time            `json:"cutoff"`
	DryRun     bool                 `json:"dry_run"`
	Candidates []RetentionCandidate `json:"candidates"`
	Succeeded  int                  `json:"succeeded"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
}

// BulkAnonymizeReport aggregates per-member outcomes of a bulk anonymize.
// One member's failure never aborts its siblings.
type BulkAnonymizeReport struct {
	Requested int                  `json:"requested"`
	Succeeded []uuid.UUID          `json:"succeeded"`
	Failed    []BulkAnonymizeError `json:"failed"`
}

// BulkAnonymizeError is one failed member of a bulk anonymize.
type BulkAnonymizeError struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Error         string    `json:"error"`
}

// ComplianceCounts are the raw aggregates behind a compliance report.
type ComplianceCounts struct {
	Participants int64 `json:"participants"`
	Consented    int64 `json:"consented"`
	Anonymized   int64 `json:"anonymized"`
	Withdrawn    int64 `json:"withdrawn"`
	Completed    int64 `json:"completed"`
}

// ComplianceReport is the derived aggregate exposed to administrators.
type ComplianceReport struct {
	StudyID        *uuid.UUID       `json:"study_id,omitempty"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Counts         ComplianceCounts `json:"counts"`
	ConsentRate    float64          `json:"consent_rate"`
	AnonymizedRate float64          `json:"anonymization_rate"`
	WithdrawalRate float64          `json:"withdrawal_rate"`
	CompletionRate float64          `json:"completion_rate"`
}

// Export produces the full data snapshot of one participant. Read-only aside
// from one audit entry.
func (s *PrivacyService) Export(ctx context.Context, id uuid.UUID, format string) (*ExportDocument, error) {
	if format == "" {
		format = ExportFormatJSON
	}
	if format != ExportFormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}

	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}

	doc := &ExportDocument{
		GeneratedAt:  time.Now(),
		Format:       format,
		IsAnonymized: participant.IsAnonymized,
		Participant:  participant,
	}

	if doc.Sessions, err = s.sessionRepo.ListByParticipant(ctx, id); err != nil {
		return nil, fmt.Errorf("export sessions: %w", err)
	}
	if doc.Interactions, err = s.logRepo.ListByParticipant(ctx, id); err != nil {
		return nil, fmt.Errorf("export interactions: %w", err)
	}
	if doc.ChatMessages, err = s.chatRepo.ListByParticipant(ctx, id); err != nil {
		return nil, fmt.Errorf("export chat: %w", err)
	}
	if doc.PDFViews, err = s.pdfRepo.ListByParticipant(ctx, id); err != nil {
		return nil, fmt.Errorf("export pdf views: %w", err)
	}
	if doc.QuizResponses, err = s.quizRepo.ListByParticipant(ctx, id); err != nil {
		return nil, fmt.Errorf("export quiz responses: %w", err)
	}
	if doc.AuditTrail, err = s.auditRepo.ListByAnonymizedID(ctx, participant.AnonymizedID); err != nil {
		return nil, fmt.Errorf("export audit trail: %w", err)
	}

	details, _ := json.Marshal(map[string]any{
		"participant_id": id,
		"format":         format,
	})
	if err := s.auditRepo.Insert(ctx, &model.PrivacyAuditLog{
		AnonymizedID: participant.AnonymizedID,
		Action:       model.PrivacyActionExport,
		Reason:       "data export",
		Actor:        "admin",
		Details:      details,
	}); err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}

	return doc, nil
}

// ProcessRetention finds participants whose data exceeded the retention
// window and, unless dryRun, anonymizes each in its own transaction.
// Per-candidate failures are recorded and never block the rest of the sweep.
func (s *PrivacyService) ProcessRetention(ctx context.Context, studyID *uuid.UUID, dryRun bool) (*RetentionReport, error) {
	retentionYears := s.cfg.RetentionYears
	if studyID != nil {
		study, err := s.studyRepo.GetByID(ctx, *studyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("study %s: %w", studyID, ErrStudyNotFound)
			}
			return nil, fmt.Errorf("get study: %w", err)
		}
		retentionYears = study.RetentionYears
	}

	cutoff := time.Now().AddDate(-retentionYears, 0, 0)
	report := &RetentionReport{Cutoff: cutoff, DryRun: dryRun}

	candidates, err := s.participantRepo.RetentionCandidates(ctx, studyID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find retention candidates: %w", err)
	}

	for _, candidate := range candidates {
		entry := RetentionCandidate{
			ParticipantID: candidate.ID,
			AnonymizedID:  candidate.AnonymizedID,
			CreatedAt:     candidate.CreatedAt,
			Status:        "candidate",
		}

		if !dryRun {
			_, err := s.Anonymize(ctx, candidate.ID, "retention period exceeded", "retention_sweep")
			switch {
			case err == nil:
				entry.Status = "anonymized"
				report.Succeeded++
			case errors.Is(err, ErrAlreadyAnonymized):
				// Concurrent sweep got there first; nothing to redo.
				entry.Status = "skipped"
				report.Skipped++
			default:
				entry.Status = "failed"
				entry.Error = err.Error()
				report.Failed++
				s.log.Error().Err(err).
					Str("participant_id", candidate.ID.String()).
					Msg("Retention sweep candidate failed")
			}
		}

		report.Candidates = append(report.Candidates, entry)
	}

	return report, nil
}

// BulkAnonymize anonymizes each participant independently and aggregates the
// outcomes.
func (s *PrivacyService) BulkAnonymize(ctx context.Context, ids []uuid.UUID, reason, actor string) *BulkAnonymizeReport {
	report := &BulkAnonymizeReport{Requested: len(ids)}

	for _, id := range ids {
		if _, err := s.Anonymize(ctx, id, reason, actor); err != nil {
			report.Failed = append(report.Failed, BulkAnonymizeError{
				ParticipantID: id,
				Error:         err.Error(),
			})
			continue
		}
		report.Succeeded = append(report.Succeeded, id)
	}

	return report
}

// GetComplianceReport aggregates consent, anonymization, withdrawal and
// completion rates. Purely derived; no mutation.
func (s *PrivacyService) GetComplianceReport(ctx context.Context, studyID *uuid.UUID) (*ComplianceReport, error) {
	counts := ComplianceCounts{}

	participantQuery := `SELECT COUNT(*),
		 COUNT(*) FILTER (WHERE consent_given),
		 COUNT(*) FILTER (WHERE is_anonymized),
		 COUNT(*) FILTER (WHERE withdrawn)
	 FROM participants`
	completedQuery := `SELECT COUNT(DISTINCT ss.participant_id)
	 FROM study_sessions ss
	 JOIN participants p ON p.id = ss.participant_id
	 WHERE ss.is_completed`

	var args []any
	if studyID != nil {
		args = append(args, *studyID)
		participantQuery += ` WHERE study_id = $1`
		completedQuery += ` AND p.study_id = $1`
	}

	if err := s.pool.QueryRow(ctx, participantQuery, args...).Scan(
		&counts.Participants, &counts.Consented, &counts.Anonymized, &counts.Withdrawn,
	); err != nil {
		return nil, fmt.Errorf("aggregate participants: %w", err)
	}
	if err := s.pool.QueryRow(ctx, completedQuery, args...).Scan(&counts.Completed); err != nil {
		return nil, fmt.Errorf("aggregate completions: %w", err)
	}

	report := buildComplianceReport(counts)
	report.StudyID = studyID
	return report, nil
}

// buildComplianceReport derives the rate view from raw counts.
func buildComplianceReport(counts ComplianceCounts) *ComplianceReport {
	report := &ComplianceReport{
		GeneratedAt: time.Now(),
		Counts:      counts,
	}
	if counts.Participants == 0 {
		return report
	}
	total := float64(counts.Participants)
	report.ConsentRate = float64(counts.Consented) / total
	report.AnonymizedRate = float64(counts.Anonymized) / total
	report.WithdrawalRate = float64(counts.Withdrawn) / total
	report.CompletionRate = float64(counts.Completed) / total
	return report
}
