package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"project-review-api/internal/client"
	"project-review-api/internal/config"
	"project-review-api/internal/database"
	"project-review-api/internal/job"
	"project-review-api/internal/lock"
	"project-review-api/internal/metrics"
	"project-review-api/internal/mq"
	"project-review-api/internal/outbox"
	"project-review-api/internal/repository"
	"project-review-api/internal/router"
	"project-review-api/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Project Review Service",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
	)

	// Initialize database
	dbConfig := database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	if err := database.SafeAutoMigrateWithRetry(db, logger, 3); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	// Initialize metrics and the DB query instrumentation
	m := metrics.NewWithLogger(logger)
	database.RegisterMetricsCallbacks(db, m)
	dbStatsDone := database.StartDBStatsCollector(db, m)
	defer close(dbStatsDone)

	collector := metrics.NewBusinessMetricsCollector(db, m, logger)
	collector.Start()
	defer collector.Stop()
	logger.Info("Metrics initialized")

	// Redis backs the per-project locks; the service degrades to unlocked
	// operation when it is unavailable.
	if err := database.InitRedis(cfg, logger); err != nil {
		logger.Warn("Failed to connect to Redis, project locking disabled", zap.Error(err))
	}
	locker := lock.NewRedisProjectLocker(database.GetRedis(), logger)

	// Document storage
	var fileService service.FileService
	if cfg.S3.Bucket != "" && cfg.S3.Region != "" {
		store, err := client.NewS3FileStore(&cfg.S3)
		if err != nil {
			logger.Fatal("Failed to initialize S3 file store", zap.Error(err))
		}
		fileService = store
		logger.Info("S3 file store initialized",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("region", cfg.S3.Region),
		)
	} else {
		logger.Fatal("S3 configuration incomplete; document storage is required")
	}

	// Repositories
	projectRepo := repository.NewProjectRepository(db)
	stageRepo := repository.NewStageRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	reviewerRepo := repository.NewReviewerRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// Services
	recorder := service.NewHistoryRecorder(historyRepo, logger)
	outboxWriter := service.NewOutboxWriter(outboxRepo, logger)
	directoryService := service.NewDirectoryService(db, reviewerRepo, stageRepo, recorder, logger)
	pipelineService := service.NewPipelineService(db, stageRepo, projectRepo, feedbackRepo,
		directoryService, recorder, outboxWriter, locker, logger)
	workflowService := service.NewWorkflowService(db, projectRepo, documentRepo, pipelineService,
		recorder, outboxWriter, locker, logger)
	documentService := service.NewDocumentService(db, documentRepo, projectRepo, fileService,
		recorder, outboxWriter, logger)
	feedbackService := service.NewFeedbackService(db, feedbackRepo, projectRepo, stageRepo,
		recorder, outboxWriter, logger)

	// Outbox sink: RabbitMQ when configured, HTTP notification service
	// otherwise
	var sink outbox.Sink
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		sink = publisher
		logger.Info("Outbox sink: RabbitMQ", zap.String("exchange", mq.ExchangeName))
	} else {
		sink = client.NewNotificationClient(cfg.Notification.BaseURL, cfg.Notification.APIKey,
			cfg.Notification.Timeout, logger, m)
		logger.Info("Outbox sink: notification service", zap.String("base_url", cfg.Notification.BaseURL))
	}
	dispatcher := outbox.NewDispatcher(outboxRepo, sink, logger)

	// Background jobs
	scheduler := job.NewScheduler(logger)
	if err := scheduler.Register(cfg.Jobs.OutboxDispatchSpec, "outbox-dispatch",
		job.NewOutboxJob(dispatcher, logger)); err != nil {
		logger.Fatal("Failed to register outbox job", zap.Error(err))
	}
	if err := scheduler.Register(cfg.Jobs.OverdueReminderSpec, "overdue-reminder",
		job.NewOverdueReminderJob(db, stageRepo, outboxWriter, logger)); err != nil {
		logger.Fatal("Failed to register overdue reminder job", zap.Error(err))
	}
	if err := scheduler.Register(cfg.Jobs.DraftCleanupSpec, "draft-cleanup",
		job.NewDraftCleanupJob(db, projectRepo, documentRepo, recorder,
			cfg.Jobs.DraftRetentionDays, logger)); err != nil {
		logger.Fatal("Failed to register draft cleanup job", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router with all dependencies
	r := router.Setup(router.Config{
		DB:               db,
		Logger:           logger,
		JWTSecret:        cfg.JWT.Secret,
		BasePath:         cfg.Server.BasePath,
		Metrics:          m,
		WorkflowService:  workflowService,
		PipelineService:  pipelineService,
		DocumentService:  documentService,
		FeedbackService:  feedbackService,
		DirectoryService: directoryService,
		HistoryRecorder:  recorder,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Project Review Service started successfully",
			zap.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := database.Close(db); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return config.Build()
}
