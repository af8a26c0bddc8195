// Package metrics exposes Prometheus collectors for conversions, downloads and
// artifact deletions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. All metric names are prefixed with the
// namespace passed to New.
type Metrics struct {
	registry *prometheus.Registry

	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	inProgress         prometheus.Gauge
	infoRequestsTotal  *prometheus.CounterVec
	downloadsTotal     *prometheus.CounterVec
	bytesServed        prometheus.Counter
	deletionsTotal     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry. Go runtime and process
// collectors are included.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		conversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversion requests by result.",
		}, []string{"result"}),
		conversionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall time of the extraction tool per conversion.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversions_in_progress",
			Help:      "Conversions currently running.",
		}),
		infoRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "info_requests_total",
			Help:      "Metadata requests by result.",
		}, []string{"result"}),
		downloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Artifact download attempts by result.",
		}, []string{"result"}),
		bytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes streamed to clients.",
		}),
		deletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_deletions_total",
			Help:      "Artifacts deleted by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.conversionsTotal,
		m.conversionDuration,
		m.inProgress,
		m.infoRequestsTotal,
		m.downloadsTotal,
		m.bytesServed,
		m.deletionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartConversion marks a conversion as running and returns a func that records
// its outcome.
func (m *Metrics) StartConversion() func(result string) {
	start := time.Now()
	m.inProgress.Inc()
	return func(result string) {
		m.inProgress.Dec()
		m.conversionsTotal.WithLabelValues(result).Inc()
		m.conversionDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordInfo(result string) {
	m.infoRequestsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDownload(result string, bytes int64) {
	m.downloadsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.bytesServed.Add(float64(bytes))
	}
}

func (m *Metrics) RecordDeletion(reason string) {
	m.deletionsTotal.WithLabelValues(reason).Inc()
}
