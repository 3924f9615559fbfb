package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BusinessMetricsCollector refreshes the business gauges periodically
type BusinessMetricsCollector struct {
	db      *gorm.DB
	metrics *Metrics
	logger  *zap.Logger
	ticker  *time.Ticker
	done    chan bool
}

// NewBusinessMetricsCollector creates a new collector
func NewBusinessMetricsCollector(db *gorm.DB, metrics *Metrics, logger *zap.Logger) *BusinessMetricsCollector {
	return &BusinessMetricsCollector{
		db:      db,
		metrics: metrics,
		logger:  logger,
		ticker:  time.NewTicker(60 * time.Second),
		done:    make(chan bool),
	}
}

// Start begins collecting metrics
func (c *BusinessMetricsCollector) Start() {
	go func() {
		c.collect()

		for {
			select {
			case <-c.ticker.C:
				c.collect()
			case <-c.done:
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *BusinessMetricsCollector) Stop() {
	c.ticker.Stop()
	c.done <- true
}

// collect gathers business gauges
func (c *BusinessMetricsCollector) collect() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in business metrics collection",
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var projectCount int64
	if err := c.db.WithContext(ctx).Table("projects").Count(&projectCount).Error; err != nil {
		c.logger.Error("Failed to count projects", zap.Error(err))
	} else {
		c.metrics.SetProjectsTotal(projectCount)
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var perStatus []statusCount
	if err := c.db.WithContext(ctx).
		Table("projects").
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&perStatus).Error; err != nil {
		c.logger.Error("Failed to count projects by status", zap.Error(err))
	} else {
		for _, row := range perStatus {
			c.metrics.SetProjectsByStatus(row.Status, row.Count)
		}
	}

	var pendingOutbox int64
	if err := c.db.WithContext(ctx).
		Table("outbox_events").
		Where("status = ?", "pending").
		Count(&pendingOutbox).Error; err != nil {
		c.logger.Error("Failed to count pending outbox events", zap.Error(err))
	} else {
		c.metrics.SetOutboxPending(pendingOutbox)
	}
}
