package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	itemTotal    *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	itemInFlight prometheus.Gauge
	batchSize    prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	itemTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dfb",
			Subsystem: "worker",
			Name:      "upload_item_total",
			Help:      "Total uploaded batch items by status.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	itemDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dfb",
			Subsystem: "worker",
			Name:      "upload_item_duration_seconds",
			Help:      "Per-item upload duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	itemInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dfb",
			Subsystem: "worker",
			Name:      "upload_item_in_flight",
			Help:      "Number of in-flight item uploads.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dfb",
			Subsystem: "worker",
			Name:      "batch_size_items",
			Help:      "Number of items per processed batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 15},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(itemTotal, itemDuration, itemInFlight, batchSize)

	return &WorkerMetrics{
		registry:     registry,
		itemTotal:    itemTotal,
		itemDuration: itemDuration,
		itemInFlight: itemInFlight,
		batchSize:    batchSize,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveItem(status string, duration time.Duration) {
	m.itemTotal.WithLabelValues(status).Inc()
	m.itemDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveBatch(size int) {
	m.batchSize.Observe(float64(size))
}

func (m *WorkerMetrics) InFlightAdd(delta float64) {
	m.itemInFlight.Add(delta)
}
