package job

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the background jobs on their cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a job under the given cron spec
func (s *Scheduler) Register(spec string, name string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		s.logger.Error("Failed to register job",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err))
		return err
	}
	s.logger.Info("Registered background job",
		zap.String("job", name),
		zap.String("spec", spec))
	return nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
