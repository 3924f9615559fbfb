package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-review-api/internal/dto"
	"project-review-api/internal/response"
	"project-review-api/internal/service"
)

// ReviewerHandler serves the reviewer directory endpoints
type ReviewerHandler struct {
	directoryService service.DirectoryService
}

// NewReviewerHandler creates a new reviewer handler
func NewReviewerHandler(directoryService service.DirectoryService) *ReviewerHandler {
	return &ReviewerHandler{directoryService: directoryService}
}

func (h *ReviewerHandler) CreateReviewer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.CreateReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Name and email are required")
		return
	}

	reviewer, appErr := h.directoryService.CreateReviewer(c.Request.Context(), actor, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusCreated, reviewer)
}

func (h *ReviewerHandler) GetReviewer(c *gin.Context) {
	reviewerID, ok := parseIDParam(c, "reviewerId")
	if !ok {
		return
	}

	reviewer, appErr := h.directoryService.GetReviewer(c.Request.Context(), reviewerID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, reviewer)
}

func (h *ReviewerHandler) ListReviewers(c *gin.Context) {
	reviewers, appErr := h.directoryService.ListReviewers(c.Request.Context())
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, reviewers)
}

func (h *ReviewerHandler) UpdateReviewer(c *gin.Context) {
	reviewerID, ok := parseIDParam(c, "reviewerId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.UpdateReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	reviewer, appErr := h.directoryService.UpdateReviewer(c.Request.Context(), actor, reviewerID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, reviewer)
}

func (h *ReviewerHandler) ReassignStages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ReassignStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Source and target reviewer IDs are required")
		return
	}

	stages, appErr := h.directoryService.ReassignStages(c.Request.Context(), actor, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stages)
}
