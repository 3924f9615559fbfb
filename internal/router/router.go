package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/handler"
	"project-review-api/internal/metrics"
	"project-review-api/internal/middleware"
	"project-review-api/internal/service"
)

// Config carries everything the router needs
type Config struct {
	DB               *gorm.DB
	Logger           *zap.Logger
	JWTSecret        string
	BasePath         string
	AllowedOrigins   []string
	Metrics          *metrics.Metrics
	WorkflowService  service.WorkflowService
	PipelineService  service.PipelineService
	DocumentService  service.DocumentService
	FeedbackService  service.FeedbackService
	DirectoryService service.DirectoryService
	HistoryRecorder  service.HistoryRecorder
}

// Setup builds the gin engine with all middleware and routes
func Setup(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health and metrics live outside the authenticated API surface
	r.GET("/health", healthCheck(cfg.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projectHandler := handler.NewProjectHandler(cfg.WorkflowService, cfg.HistoryRecorder)
	stageHandler := handler.NewStageHandler(cfg.PipelineService)
	documentHandler := handler.NewDocumentHandler(cfg.DocumentService)
	feedbackHandler := handler.NewFeedbackHandler(cfg.FeedbackService)
	reviewerHandler := handler.NewReviewerHandler(cfg.DirectoryService)

	api := r.Group(cfg.BasePath)
	api.GET("/health", healthCheck(cfg.DB))
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/code/:code", projectHandler.GetProjectByCode)
			projects.GET("/:projectId", projectHandler.GetProject)
			projects.PUT("/:projectId", projectHandler.UpdateProject)
			projects.DELETE("/:projectId", projectHandler.DeleteDraft)
			projects.POST("/:projectId/submit", projectHandler.SubmitProject)
			projects.POST("/:projectId/status", projectHandler.ChangeStatus)
			projects.GET("/:projectId/history", projectHandler.GetProjectHistory)

			projects.GET("/:projectId/stages", stageHandler.GetProjectStages)

			projects.POST("/:projectId/documents", documentHandler.UploadDocument)
			projects.GET("/:projectId/documents", documentHandler.ListProjectDocuments)
			projects.GET("/:projectId/documents/versions", documentHandler.ListDocumentVersions)

			projects.POST("/:projectId/feedback", feedbackHandler.AddFeedback)
			projects.GET("/:projectId/feedback", feedbackHandler.ListProjectFeedback)
			projects.GET("/:projectId/feedback/blocking", feedbackHandler.ListBlockingFeedback)
		}

		stages := api.Group("/stages")
		{
			stages.POST("/:stageId/start", stageHandler.StartStage)
			stages.POST("/:stageId/complete", stageHandler.CompleteStage)
			stages.POST("/:stageId/fail", stageHandler.FailStage)
			stages.PATCH("/:stageId/progress", stageHandler.UpdateProgress)
			stages.PATCH("/:stageId/due-date", stageHandler.ExtendDueDate)
		}

		documents := api.Group("/documents")
		{
			documents.PATCH("/:documentId/status", documentHandler.ChangeDocumentStatus)
			documents.DELETE("/:documentId", documentHandler.DeleteDocument)
			documents.GET("/:documentId/verify", documentHandler.VerifyDocumentIntegrity)
		}

		feedback := api.Group("/feedback")
		{
			feedback.POST("/:feedbackId/resolve", feedbackHandler.ResolveFeedback)
			feedback.POST("/:feedbackId/reopen", feedbackHandler.ReopenFeedback)
		}

		reviewers := api.Group("/reviewers")
		{
			reviewers.POST("", reviewerHandler.CreateReviewer)
			reviewers.GET("", reviewerHandler.ListReviewers)
			reviewers.POST("/reassign", reviewerHandler.ReassignStages)
			reviewers.GET("/:reviewerId", reviewerHandler.GetReviewer)
			reviewers.PUT("/:reviewerId", reviewerHandler.UpdateReviewer)
		}
	}

	return r
}

// healthCheck reports service and database health
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		dbStatus := "connected"

		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "degraded"
				dbStatus = "disconnected"
			}
		} else {
			status = "degraded"
			dbStatus = "not configured"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   status,
			"database": dbStatus,
			"service":  "project-review-api",
		})
	}
}
