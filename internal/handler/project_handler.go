package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/middleware"
	"project-review-api/internal/response"
	"project-review-api/internal/service"
)

// ProjectHandler serves the project workflow endpoints
type ProjectHandler struct {
	workflowService service.WorkflowService
	historyRecorder service.HistoryRecorder
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(workflowService service.WorkflowService, historyRecorder service.HistoryRecorder) *ProjectHandler {
	return &ProjectHandler{
		workflowService: workflowService,
		historyRecorder: historyRecorder,
	}
}

// requireActor extracts the authenticated actor or writes a 401
func requireActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Actor not found in context")
		return domain.Actor{}, false
	}
	return actor, true
}

// parseIDParam parses the named path parameter as a UUID or writes a 400
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	project, appErr := h.workflowService.CreateProject(c.Request.Context(), actor, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusCreated, project)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	project, appErr := h.workflowService.GetProject(c.Request.Context(), projectID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, project)
}

func (h *ProjectHandler) GetProjectByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Project code is required")
		return
	}

	project, appErr := h.workflowService.GetProjectByCode(c.Request.Context(), code)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, project)
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	filter := dto.ProjectListFilter{
		Page:  parseIntQuery(c, "page", 1),
		Limit: parseIntQuery(c, "limit", 20),
	}

	if status := c.Query("status"); status != "" {
		s := domain.ProjectStatus(status)
		if !s.IsValid() {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid status filter")
			return
		}
		filter.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := domain.ProjectPriority(priority)
		filter.Priority = &p
	}
	if owner := c.Query("owner_id"); owner != "" {
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid owner_id filter")
			return
		}
		filter.OwnerID = &ownerID
	}

	page, appErr := h.workflowService.ListProjects(c.Request.Context(), filter)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, page)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	project, appErr := h.workflowService.UpdateProject(c.Request.Context(), actor, projectID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, project)
}

func (h *ProjectHandler) SubmitProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	project, appErr := h.workflowService.SubmitProject(c.Request.Context(), actor, projectID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, project)
}

func (h *ProjectHandler) ChangeStatus(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ChangeProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	project, appErr := h.workflowService.ChangeStatus(c.Request.Context(), actor, projectID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteDraft(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if appErr := h.workflowService.DeleteDraft(c.Request.Context(), actor, projectID); appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (h *ProjectHandler) GetProjectHistory(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 50)

	history, err := h.historyRecorder.ListByProject(c.Request.Context(), projectID, page, limit)
	if err != nil {
		response.SendError(c, http.StatusInternalServerError, response.ErrCodeInternal, "Failed to load project history")
		return
	}

	response.SendSuccess(c, http.StatusOK, history)
}

// parseIntQuery reads an integer query parameter with a fallback
func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
