package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ParticipantHandler handles enrollment and participant lifecycle endpoints.
type ParticipantHandler struct {
	sessionService *service.SessionService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(sessionService *service.SessionService) *ParticipantHandler {
	return &ParticipantHandler{sessionService: sessionService}
}

// Enroll godoc
// POST /api/v1/participants
// Enrolls a new participant into a study.
func (h *ParticipantHandler) Enroll(c *gin.Context) {
	var req model.EnrollParticipantRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.sessionService.EnrollParticipant(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrStudyNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"participant": participant})
}

// RecordConsent godoc
// POST /api/v1/participants/:id/consent
// Records informed consent for a participant.
func (h *ParticipantHandler) RecordConsent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.RecordConsent(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "consent recorded"})
}

// Withdraw godoc
// POST /api/v1/participants/:id/withdraw
// Withdraws a participant from the study and ends their active session.
func (h *ParticipantHandler) Withdraw(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.Withdraw(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "participant withdrawn"})
}

// ListByStudy godoc
// GET /api/v1/admin/studies/:study_id/participants?page=1&per_page=50
// Lists a study's participants with pagination.
func (h *ParticipantHandler) ListByStudy(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("study_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	participants, total, err := h.sessionService.ListParticipants(c.Request.Context(), studyID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"participants": participants}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// GetParticipant godoc
// GET /api/v1/admin/participants/:id
// Retrieves one participant record.
func (h *ParticipantHandler) GetParticipant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	participant, err := h.sessionService.GetParticipant(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrParticipantNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}
