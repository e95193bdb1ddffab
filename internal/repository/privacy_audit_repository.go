package repository

import (
	"context"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrivacyAuditRepository handles the privacy audit trail. Audit rows carry
// the anonymized ID only, never a participant foreign key.
type PrivacyAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPrivacyAuditRepository creates a new PrivacyAuditRepository.
func NewPrivacyAuditRepository(pool *pgxpool.Pool) *PrivacyAuditRepository {
	return &PrivacyAuditRepository{pool: pool}
}

// Insert appends an audit entry.
func (r *PrivacyAuditRepository) Insert(ctx context.Context, e *model.PrivacyAuditLog) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO privacy_audit_logs (anonymized_id, action, reason, actor, details)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.AnonymizedID, e.Action, e.Reason, e.Actor, e.Details,
	).Scan(&e.ID, &e.CreatedAt)
}

// InsertTx appends an audit entry inside the caller's transaction so the
// audit commits atomically with the operation it records.
func (r *PrivacyAuditRepository) InsertTx(ctx context.Context, tx pgx.Tx, e *model.PrivacyAuditLog) error {
	return tx.QueryRow(ctx,
		`INSERT INTO privacy_audit_logs (anonymized_id, action, reason, actor, details)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.AnonymizedID, e.Action, e.Reason, e.Actor, e.Details,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListByAnonymizedID retrieves the audit trail of one participant.
func (r *PrivacyAuditRepository) ListByAnonymizedID(ctx context.Context, anonymizedID string) ([]model.PrivacyAuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, anonymized_id, action, reason, actor, details, created_at
		 FROM privacy_audit_logs
		 WHERE anonymized_id = $1
		 ORDER BY created_at ASC`, anonymizedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.PrivacyAuditLog
	for rows.Next() {
		var e model.PrivacyAuditLog
		if err := rows.Scan(&e.ID, &e.AnonymizedID, &e.Action, &e.Reason, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
