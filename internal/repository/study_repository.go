package repository

import (
	"context"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudyRepository handles study data access.
type StudyRepository struct {
	pool *pgxpool.Pool
}

// NewStudyRepository creates a new StudyRepository.
func NewStudyRepository(pool *pgxpool.Pool) *StudyRepository {
	return &StudyRepository{pool: pool}
}

// Create inserts a new study.
func (r *StudyRepository) Create(ctx context.Context, s *model.Study) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO studies (name, description, retention_years)
		 VALUES ($1, $2, $3)
		 RETURNING id, is_active, created_at`,
		s.Name, s.Description, s.RetentionYears,
	).Scan(&s.ID, &s.IsActive, &s.CreatedAt)
}

// GetByID retrieves a study by primary key.
func (r *StudyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Study, error) {
	s := &model.Study{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, retention_years, is_active, created_at
		 FROM studies WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.RetentionYears, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves all studies.
func (r *StudyRepository) List(ctx context.Context) ([]model.Study, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, retention_years, is_active, created_at
		 FROM studies ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var studies []model.Study
	for rows.Next() {
		var s model.Study
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.RetentionYears, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		studies = append(studies, s)
	}
	return studies, rows.Err()
}
