package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-review-api/internal/dto"
	"project-review-api/internal/response"
	"project-review-api/internal/service"
)

// StageHandler serves the review pipeline endpoints
type StageHandler struct {
	pipelineService service.PipelineService
}

// NewStageHandler creates a new stage handler
func NewStageHandler(pipelineService service.PipelineService) *StageHandler {
	return &StageHandler{pipelineService: pipelineService}
}

func (h *StageHandler) GetProjectStages(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	stages, appErr := h.pipelineService.GetProjectStages(c.Request.Context(), projectID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stages)
}

func (h *StageHandler) StartStage(c *gin.Context) {
	stageID, ok := parseIDParam(c, "stageId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stage, appErr := h.pipelineService.StartStage(c.Request.Context(), actor, stageID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stage)
}

func (h *StageHandler) CompleteStage(c *gin.Context) {
	stageID, ok := parseIDParam(c, "stageId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.CompleteStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, appErr := h.pipelineService.CompleteStage(c.Request.Context(), actor, stageID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

func (h *StageHandler) FailStage(c *gin.Context) {
	stageID, ok := parseIDParam(c, "stageId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.FailStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Failure reason is required")
		return
	}

	stage, appErr := h.pipelineService.FailStage(c.Request.Context(), actor, stageID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stage)
}

func (h *StageHandler) UpdateProgress(c *gin.Context) {
	stageID, ok := parseIDParam(c, "stageId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.UpdateStageProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	stage, appErr := h.pipelineService.UpdateProgress(c.Request.Context(), actor, stageID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stage)
}

func (h *StageHandler) ExtendDueDate(c *gin.Context) {
	stageID, ok := parseIDParam(c, "stageId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ExtendDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Due date is required")
		return
	}

	stage, appErr := h.pipelineService.ExtendDueDate(c.Request.Context(), actor, stageID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, stage)
}
