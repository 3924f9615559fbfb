package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/response"
	"project-review-api/internal/service"
)

// maxUploadSize caps document uploads at 50MB
const maxUploadSize = 50 << 20

// DocumentHandler serves the document version endpoints
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Area and name are required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "File is required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "File exceeds the maximum upload size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.SendError(c, http.StatusInternalServerError, response.ErrCodeInternal, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	document, appErr := h.documentService.UploadDocument(
		c.Request.Context(), actor, projectID, req, fileHeader.Filename, contentType, file)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusCreated, document)
}

func (h *DocumentHandler) ListProjectDocuments(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	latestOnly := c.Query("latest_only") != "false"

	documents, appErr := h.documentService.ListProjectDocuments(c.Request.Context(), projectID, latestOnly)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, documents)
}

func (h *DocumentHandler) ListDocumentVersions(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}

	area := domain.ReviewArea(c.Query("area"))
	name := c.Query("name")
	if !area.IsValid() || name == "" {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Valid area and name query parameters are required")
		return
	}

	versions, appErr := h.documentService.ListDocumentVersions(c.Request.Context(), projectID, area, name)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, versions)
}

func (h *DocumentHandler) ChangeDocumentStatus(c *gin.Context) {
	documentID, ok := parseIDParam(c, "documentId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ChangeDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Status is required")
		return
	}

	document, appErr := h.documentService.ChangeDocumentStatus(c.Request.Context(), actor, documentID, req)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, document)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID, ok := parseIDParam(c, "documentId")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if appErr := h.documentService.DeleteDocument(c.Request.Context(), actor, documentID); appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

func (h *DocumentHandler) VerifyDocumentIntegrity(c *gin.Context) {
	documentID, ok := parseIDParam(c, "documentId")
	if !ok {
		return
	}

	document, appErr := h.documentService.VerifyDocumentIntegrity(c.Request.Context(), documentID)
	if appErr != nil {
		handleAppError(c, appErr)
		return
	}

	response.SendSuccess(c, http.StatusOK, document)
}
