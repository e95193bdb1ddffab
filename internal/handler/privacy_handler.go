package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edulab/studytrace-backend/internal/middleware"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrivacyHandler handles the admin-facing data-protection endpoints.
type PrivacyHandler struct {
	privacyService *service.PrivacyService
}

// NewPrivacyHandler creates a new PrivacyHandler.
func NewPrivacyHandler(privacyService *service.PrivacyService) *PrivacyHandler {
	return &PrivacyHandler{privacyService: privacyService}
}

// AnonymizeRequest is the payload for a single anonymization.
type AnonymizeRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=255"`
}

// DeleteRequest is the payload for a full data deletion. ConfirmationToken
// must be the participant's anonymized ID.
type DeleteRequest struct {
	Reason            string `json:"reason" binding:"required,min=3,max=255"`
	ConfirmationToken string `json:"confirmation_token" binding:"required"`
}

// BulkAnonymizeRequest is the payload for anonymizing a batch of
// participants.
type BulkAnonymizeRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1,max=500,dive,uuid"`
	Reason         string   `json:"reason" binding:"required,min=3,max=255"`
}

// actorFromClaims derives the audit actor label from the authenticated admin.
func actorFromClaims(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return "admin:" + strconv.Itoa(claims.AdminID)
	}
	return "admin"
}

// Anonymize godoc
// POST /api/v1/admin/participants/:id/anonymize
// Irreversibly anonymizes one participant's data.
func (h *PrivacyHandler) Anonymize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req AnonymizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.privacyService.Anonymize(c.Request.Context(), id, req.Reason, actorFromClaims(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAlreadyAnonymized):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyAnonymized)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Delete godoc
// POST /api/v1/admin/participants/:id/delete
// Permanently deletes all of one participant's data.
func (h *PrivacyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req DeleteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.privacyService.Delete(c.Request.Context(), id, req.ConfirmationToken, req.Reason, actorFromClaims(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAlreadyDeleted):
			response.Fail(c, http.StatusGone, response.ErrAlreadyDeleted)
		case errors.Is(err, service.ErrConfirmationMismatch):
			response.Fail(c, http.StatusConflict, response.ErrConfirmationRequired)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Export godoc
// GET /api/v1/admin/participants/:id/export?format=json
// Exports every data category tied to one participant.
func (h *PrivacyHandler) Export(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	doc, err := h.privacyService.Export(c.Request.Context(), id, c.DefaultQuery("format", "json"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrUnsupportedExportFormat):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFormat)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"export": doc})
}

// RetentionSweep godoc
// POST /api/v1/admin/privacy/retention-sweep?dry_run=true&study_id=...
// Finds (and unless dry_run, anonymizes) participants past retention.
func (h *PrivacyHandler) RetentionSweep(c *gin.Context) {
	dryRun := c.DefaultQuery("dry_run", "false") == "true"

	var studyID *uuid.UUID
	if raw := c.Query("study_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		studyID = &id
	}

	report, err := h.privacyService.ProcessRetention(c.Request.Context(), studyID, dryRun)
	if err != nil {
		if errors.Is(err, service.ErrStudyNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// BulkAnonymize godoc
// POST /api/v1/admin/privacy/bulk-anonymize
// Anonymizes a batch of participants, isolating per-member failures.
func (h *PrivacyHandler) BulkAnonymize(c *gin.Context) {
	var req BulkAnonymizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		ids = append(ids, id)
	}

	report := h.privacyService.BulkAnonymize(c.Request.Context(), ids, req.Reason, actorFromClaims(c))
	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// ComplianceReport godoc
// GET /api/v1/admin/privacy/compliance-report?study_id=...
// Returns consent, anonymization, withdrawal and completion aggregates.
func (h *PrivacyHandler) ComplianceReport(c *gin.Context) {
	var studyID *uuid.UUID
	if raw := c.Query("study_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		studyID = &id
	}

	report, err := h.privacyService.GetComplianceReport(c.Request.Context(), studyID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}
