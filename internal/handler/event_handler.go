package handler

import (
	"errors"
	"net/http"

	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/response"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/edulab/studytrace-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// EventHandler handles behavioral telemetry capture.
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// failEvent maps event-capture service errors onto the response envelope.
func failEvent(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// LogEvent godoc
// POST /api/v1/events
// Enqueues a free-form frontend interaction event.
func (h *EventHandler) LogEvent(c *gin.Context) {
	var req model.LogEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.eventService.LogEvent(c.Request.Context(), &req); err != nil {
		failEvent(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// RecordChat godoc
// POST /api/v1/events/chat
// Records a chat message in the chat condition.
func (h *EventHandler) RecordChat(c *gin.Context) {
	var req model.RecordChatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	message, err := h.eventService.RecordChat(c.Request.Context(), &req)
	if err != nil {
		failEvent(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"message": message})
}

// RecordPageView godoc
// POST /api/v1/events/pdf-view
// Records per-page PDF reading telemetry in the PDF condition.
func (h *EventHandler) RecordPageView(c *gin.Context) {
	var req model.RecordPageViewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.eventService.RecordPageView(c.Request.Context(), &req)
	if err != nil {
		failEvent(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"view": view})
}

// RecordQuizResponse godoc
// POST /api/v1/events/quiz
// Records one answered quiz question.
func (h *EventHandler) RecordQuizResponse(c *gin.Context) {
	var req model.RecordQuizResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.eventService.RecordQuizResponse(c.Request.Context(), &req)
	if err != nil {
		failEvent(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"response": answer})
}
