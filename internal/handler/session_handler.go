package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles the study session lifecycle and phase transitions.
type SessionHandler struct {
	sessionService *service.SessionService
	phaseEngine    *service.PhaseEngineService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, phaseEngine *service.PhaseEngineService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, phaseEngine: phaseEngine}
}

// StartSession godoc
// POST /api/v1/participants/:id/sessions
// Opens a new active session in the consent phase.
func (h *SessionHandler) StartSession(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), participantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParticipantNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSessionAlreadyActive):
			response.Fail(c, http.StatusConflict, response.ErrSessionAlreadyActive)
		case errors.Is(err, service.ErrParticipantWithdrawn):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetActiveSession godoc
// GET /api/v1/participants/:id/sessions/active
// Resolves the participant's current active session.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.GetActiveSession(c.Request.Context(), participantID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotActive) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// TransitionPhase godoc
// POST /api/v1/sessions/:session_id/transition
// Advances a session to the requested phase.
func (h *SessionHandler) TransitionPhase(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.TransitionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	at := time.Time{}
	if req.ClientTimestamp != nil {
		at = *req.ClientTimestamp
	}

	result, err := h.phaseEngine.TransitionPhase(c.Request.Context(), sessionID, req.NewPhase, at)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInvalidTransition):
			response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
		case errors.Is(err, service.ErrConsentRequired):
			response.Fail(c, http.StatusConflict, response.ErrConsentRequired)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transition": result})
}

// GetBreakdown godoc
// GET /api/v1/sessions/:session_id/breakdown
// Returns per-phase durations including the live phase's elapsed time.
func (h *SessionHandler) GetBreakdown(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	breakdown, err := h.phaseEngine.GetBreakdown(c.Request.Context(), sessionID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"breakdown": breakdown})
}

// GetSummary godoc
// GET /api/v1/admin/sessions/:session_id/summary
// Returns the interaction aggregates of a session.
func (h *SessionHandler) GetSummary(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.sessionService.GetSessionSummary(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// Terminate godoc
// POST /api/v1/sessions/:session_id/terminate
// Ends a session without completing the study.
func (h *SessionHandler) Terminate(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.TerminateSession(c.Request.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSessionNotActive):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "session terminated"})
}
