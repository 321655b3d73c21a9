package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "eldercare_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	alertsEmitted  *prometheus.CounterVec
	resetRequests  *prometheus.CounterVec
)

// Init registers the service metrics with the default registry. Safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		alertsEmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_emitted_total",
				Help: "Alerts emitted by type",
			},
			[]string{"type"},
		)
		resetRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reset_daily_total",
				Help: "Daily reset requests by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(ingestRequests, ingestLatency, alertsEmitted, resetRequests)
	})
}

// ObserveIngest records one ingest call.
func ObserveIngest(result string, elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// AlertEmitted counts a stored alert.
func AlertEmitted(alertType string) {
	if alertsEmitted == nil {
		return
	}
	alertsEmitted.WithLabelValues(alertType).Inc()
}

// ObserveReset records one daily reset call.
func ObserveReset(result string) {
	if resetRequests == nil {
		return
	}
	resetRequests.WithLabelValues(result).Inc()
}
