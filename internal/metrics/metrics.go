// Package metrics holds the Prometheus collectors for storage writes,
// backend calls and live subscribers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alpha"

// Metrics bundles every collector the app exports
type Metrics struct {
	storageWrites    *prometheus.CounterVec
	storageDuration  *prometheus.HistogramVec
	storageCoalesced *prometheus.CounterVec
	storeFaults      *prometheus.CounterVec
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	liveClients      prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a private registry,
// which keeps tests from colliding on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		storageWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Durable storage writes by key, operation and result",
		}, []string{"key", "op", "result"}),

		storageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_duration_seconds",
			Help:      "Durable storage write latency",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),

		storageCoalesced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "coalesced_writes_total",
			Help:      "Queued writes superseded by a newer snapshot before they ran",
		}, []string{"key"}),

		storeFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "faults_total",
			Help:      "Persistence faults reported by the state stores",
		}, []string{"store", "op"}),

		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend API requests by endpoint and status class",
		}, []string{"endpoint", "status"}),

		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "clients",
			Help:      "Connected websocket state subscribers",
		}),
	}
}

// StorageWrite records one executed storage operation
func (m *Metrics) StorageWrite(key, op string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storageWrites.WithLabelValues(key, op, result).Inc()
	m.storageDuration.WithLabelValues(op).Observe(took.Seconds())
}

// StorageCoalesced records a queued write replaced by a newer one
func (m *Metrics) StorageCoalesced(key string) {
	if m == nil {
		return
	}
	m.storageCoalesced.WithLabelValues(key).Inc()
}

// StoreFault records a persistence fault surfaced by a state store
func (m *Metrics) StoreFault(store, op string) {
	if m == nil {
		return
	}
	m.storeFaults.WithLabelValues(store, op).Inc()
}

// APIRequest records one backend call. status is 0 for transport failures.
func (m *Metrics) APIRequest(endpoint string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
	m.apiDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

// LiveClientConnected / LiveClientDisconnected track websocket subscribers
func (m *Metrics) LiveClientConnected() {
	if m != nil {
		m.liveClients.Inc()
	}
}

func (m *Metrics) LiveClientDisconnected() {
	if m != nil {
		m.liveClients.Dec()
	}
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "network_error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
