package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clerksync_webhook_events_total",
			Help: "Processed webhook events by type and outcome",
		},
		[]string{"type", "outcome"}, // user.created|user.updated|... , created|updated|skipped|ignored|duplicate
	)

	WebhookRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clerksync_webhook_rejections_total",
			Help: "Rejected webhook deliveries by reason",
		},
		[]string{"reason"}, // signature|payload|config|store
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		WebhookEventsTotal,
		WebhookRejectionsTotal,
	)
}
