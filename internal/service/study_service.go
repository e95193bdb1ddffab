package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StudyService manages research study definitions.
type StudyService struct {
	studyRepo *repository.StudyRepository
}

// NewStudyService creates a new StudyService.
func NewStudyService(studyRepo *repository.StudyRepository) *StudyService {
	return &StudyService{studyRepo: studyRepo}
}

// Create registers a new study.
func (s *StudyService) Create(ctx context.Context, study *model.Study) error {
	return s.studyRepo.Create(ctx, study)
}

// GetByID retrieves one study.
func (s *StudyService) GetByID(ctx context.Context, id uuid.UUID) (*model.Study, error) {
	study, err := s.studyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudyNotFound
		}
		return nil, fmt.Errorf("get study: %w", err)
	}
	return study, nil
}

// List retrieves all studies.
func (s *StudyService) List(ctx context.Context) ([]model.Study, error) {
	return s.studyRepo.List(ctx)
}
