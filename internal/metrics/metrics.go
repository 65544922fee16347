package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faxgw_webhook_events_total",
			Help: "Webhook events by type and outcome",
		},
		[]string{"event", "outcome"}, // processed|dropped|error
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faxgw_jobs_total",
			Help: "Job lifecycle counter by kind and stage",
		},
		[]string{"kind", "stage"}, // queued|done|retried|exhausted
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		JobsTotal,
	)
}
