// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modern360",
		Name:      "assessments_created_total",
		Help:      "The total number of assessments created",
	})

	AssessmentsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modern360",
		Name:      "assessments_deleted_total",
		Help:      "The total number of assessments deleted with their children",
	})

	InvitationsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modern360",
		Name:      "invitations_issued_total",
		Help:      "The total number of invitations persisted",
	})

	// Notifications counts delivery attempts by message kind and outcome.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modern360",
			Name:      "notifications_total",
			Help:      "Invitation emails by kind and status",
		},
		[]string{"kind", "status"},
	)

	ResponsesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modern360",
			Name:      "responses_submitted_total",
			Help:      "Accepted response submissions by response type",
		},
		[]string{"type"},
	)

	SubmissionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "modern360",
		Name:      "submission_conflicts_total",
		Help:      "Submissions rejected because the invitation was already completed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modern360",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// NotificationStatus values used as the status label.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)
