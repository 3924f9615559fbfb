package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow event counters. These are package-level so the service layer can
// bump them without threading a Metrics handle through every transaction.
var (
	projectCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_created_total",
		Help:      "Total number of projects created",
	})
	projectSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_submitted_total",
		Help:      "Total number of projects submitted for review",
	})
	projectApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_approved_total",
		Help:      "Total number of projects approved",
	})
	projectRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "project_rejected_total",
		Help:      "Total number of projects rejected",
	})
	stageCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_completed_total",
		Help:      "Total number of pipeline stages completed, per review area",
	}, []string{"area"})
	documentUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_uploaded_total",
		Help:      "Total number of document versions uploaded",
	})
	feedbackResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_resolved_total",
		Help:      "Total number of feedback items resolved",
	})
	outboxPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Total number of outbox events delivered",
	})
	outboxFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Total number of outbox delivery attempts that failed",
	})
)

// IncrementProjectCreated increments the project creation counter
func IncrementProjectCreated() {
	projectCreatedTotal.Inc()
}

// IncrementProjectSubmitted increments the project submission counter
func IncrementProjectSubmitted() {
	projectSubmittedTotal.Inc()
}

// IncrementProjectApproved increments the project approval counter
func IncrementProjectApproved() {
	projectApprovedTotal.Inc()
}

// IncrementProjectRejected increments the project rejection counter
func IncrementProjectRejected() {
	projectRejectedTotal.Inc()
}

// IncrementStageCompleted increments the stage completion counter for an area
func IncrementStageCompleted(area string) {
	stageCompletedTotal.WithLabelValues(area).Inc()
}

// IncrementDocumentUploaded increments the document upload counter
func IncrementDocumentUploaded() {
	documentUploadedTotal.Inc()
}

// IncrementFeedbackResolved increments the feedback resolution counter
func IncrementFeedbackResolved() {
	feedbackResolvedTotal.Inc()
}

// IncrementOutboxPublished increments the delivered outbox events counter
func IncrementOutboxPublished() {
	outboxPublishedTotal.Inc()
}

// IncrementOutboxFailed increments the failed outbox attempts counter
func IncrementOutboxFailed() {
	outboxFailedTotal.Inc()
}
