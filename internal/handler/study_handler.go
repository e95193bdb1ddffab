package handler

import (
	"errors"
	"net/http"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// StudyHandler handles admin-facing study management.
type StudyHandler struct {
	studyService *service.StudyService
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(studyService *service.StudyService) *StudyHandler {
	return &StudyHandler{studyService: studyService}
}

// CreateStudyRequest is the payload for creating a study.
type CreateStudyRequest struct {
	Name           string `json:"name" binding:"required,min=3,max=200"`
	Description    string `json:"description" binding:"omitempty,max=2000"`
	RetentionYears int    `json:"retention_years" binding:"required,min=1,max=30"`
}

// ListStudies godoc
// GET /api/v1/admin/studies
// Lists all studies.
func (h *StudyHandler) ListStudies(c *gin.Context) {
	studies, err := h.studyService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"studies": studies})
}

// CreateStudy godoc
// POST /api/v1/admin/studies
// Creates a new study.
func (h *StudyHandler) CreateStudy(c *gin.Context) {
	var req CreateStudyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	study := &model.Study{
		Name:           req.Name,
		Description:    req.Description,
		RetentionYears: req.RetentionYears,
	}

	if err := h.studyService.Create(c.Request.Context(), study); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"study": study})
}

// GetStudy godoc
// GET /api/v1/admin/studies/:study_id
// Retrieves one study.
func (h *StudyHandler) GetStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("study_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	study, err := h.studyService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudyNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"study": study})
}
