// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_applications_submitted_total",
			Help: "Total number of applications submitted",
		},
		[]string{"sector"},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_application_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"from", "to"},
	)

	OperationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_operations_failed_total",
			Help: "Total number of failed workflow operations",
		},
		[]string{"operation", "error_code"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pwd_operation_duration_seconds",
			Help: "Duration of workflow operations in seconds",
		},
		[]string{"operation"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_notifications_created_total",
			Help: "Total number of notifications persisted",
		},
		[]string{"type"},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_side_effect_failures_total",
			Help: "Notification, audit or relay writes that failed and were swallowed",
		},
		[]string{"kind"},
	)

	RenewalsDue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pwd_renewals_due",
			Help: "PWD IDs inside the renewal window at the last scan",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pwd_cache_lookups_total",
			Help: "Service catalog cache lookups by result",
		},
		[]string{"result"},
	)
)
