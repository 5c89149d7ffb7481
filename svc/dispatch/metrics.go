package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Send outcomes recorded in the outcome label.
const (
	outcomeSuccess    = "success"
	outcomeNotFound   = "not_found"
	outcomeNoTemplate = "no_template"
	outcomeTransport  = "transport_error"
	outcomeError      = "error"
)

type metrics struct {
	emailsSent          *prometheus.CounterVec
	sendDuration        *prometheus.HistogramVec
	transportersCreated prometheus.Counter
}

// newMetrics registers the collectors with reg. A nil reg creates
// unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		emailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailhub_emails_sent_total",
			Help: "Send attempts by event type and outcome",
		}, []string{"event", "outcome"}),
		sendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mailhub_send_duration_seconds",
			Help:    "Duration of send calls from tenant resolution to transport result",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"event"}),
		transportersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "mailhub_transporters_created_total",
			Help: "Transporters built for tenants, including rebuilds after credential changes",
		}),
	}
}

func (m *metrics) observeSend(event, outcome string, start time.Time) {
	m.emailsSent.WithLabelValues(event, outcome).Inc()
	m.sendDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}
