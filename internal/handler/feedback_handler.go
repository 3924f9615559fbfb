package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"project-review-api/internal/dto"
	"project-review-api/internal/response"
	"project-review-api/internal/service"
)

// FeedbackHandler serves the threaded feedback endpoints
type FeedbackHandler struct {
	feedbackService service.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackService service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

func (h *FeedbackHandler) AddFeedback(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.AddFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Type and content are required")
		return
	}

	feedback, appErr := h.feedbackService.AddFeedback(c.Request.Context(), actor, projectID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusCreated, feedback)
}

func (h *FeedbackHandler) ListProjectFeedback(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	feedback, appErr := h.feedbackService.ListProjectFeedback(c.Request.Context(), projectID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, feedback)
}

func (h *FeedbackHandler) ListBlockingFeedback(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	var stageID *uuid.UUID
	if raw := c.Query("stage_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid stage_id")
			return
		}
		stageID = &parsed
	}

	feedback, appErr := h.feedbackService.BlockingSummary(c.Request.Context(), projectID, stageID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, feedback)
}

func (h *FeedbackHandler) ResolveFeedback(c *gin.Context) {
	feedbackID, ok := parseIDParam(c, "feedbackId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ResolveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	feedback, appErr := h.feedbackService.ResolveFeedback(c.Request.Context(), actor, feedbackID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, feedback)
}

func (h *FeedbackHandler) ReopenFeedback(c *gin.Context) {
	feedbackID, ok := parseIDParam(c, "feedbackId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ReopenFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	feedback, appErr := h.feedbackService.ReopenFeedback(c.Request.Context(), actor, feedbackID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, feedback)
}
