// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_listing_events_total",
			Help: "Listing lifecycle events seen by the dispatch orchestrator",
		},
		[]string{"event"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification records finalized, by transport and terminal status",
		},
		[]string{"transport", "status"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Failed notification deliveries by transport and error code",
		},
		[]string{"transport", "error_code"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dispatch_pass_duration_seconds",
			Help: "Duration of a full dispatch pass over all subscriptions",
		},
		[]string{"event"},
	)

	WebhookCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_commands_total",
			Help: "Inbound chat provider commands handled by the webhook",
		},
		[]string{"command", "outcome"},
	)
)
