package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	Webhooks           *prometheus.CounterVec
	ExcludedLines      *prometheus.CounterVec
	MDSRequestDuration prometheus.Histogram
	MDSAcks            *prometheus.CounterVec
}

// New builds and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tranquilo",
		Name:      "webhooks_total",
		Help:      "Order webhooks handled, by disposition.",
	}, []string{"disposition"})
	excludedLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tranquilo",
		Name:      "excluded_lines_total",
		Help:      "Order lines excluded from forwarding, by reason.",
	}, []string{"reason"})
	mdsDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tranquilo",
		Name:      "mds_request_duration_seconds",
		Help:      "Duration of order submissions to MDS.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	mdsAcks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tranquilo",
		Name:      "mds_acks_total",
		Help:      "Acknowledgments received from MDS, by result.",
	}, []string{"result"})

	reg.MustRegister(webhooks, excludedLines, mdsDuration, mdsAcks)

	return &Metrics{
		Webhooks:           webhooks,
		ExcludedLines:      excludedLines,
		MDSRequestDuration: mdsDuration,
		MDSAcks:            mdsAcks,
	}
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
