// Package metrics provides Prometheus metrics for the vigil routing service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the vigil service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Frame path
	framesPublished *prometheus.CounterVec
	framesRejected  *prometheus.CounterVec
	publishErrors   *prometheus.CounterVec

	// Result path
	resultsReceived  *prometheus.CounterVec
	resultsDropped   *prometheus.CounterVec
	resultsDelivered prometheus.Counter
	fanoutSize       prometheus.Histogram

	// Result store
	storeWrites       prometheus.Counter
	storeErrors       prometheus.Counter
	storeWriteLatency prometheus.Histogram

	// Connections and broker health
	clientsConnected prometheus.Gauge
	brokerConnected  prometheus.Gauge

	// Inbound queues
	queueDepth *prometheus.GaugeVec
	queueDrops *prometheus.CounterVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vigil",
		subsystem:        "router",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_published_total",
		Help:      "Frames published to the broker, by topic",
	}, []string{"topic"})

	m.framesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_rejected_total",
		Help:      "Client frames rejected before publish, by reason",
	}, []string{"reason"})

	m.publishErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Broker publish failures, by topic",
	}, []string{"topic"})

	m.resultsReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_received_total",
		Help:      "Raw results received from the broker, by topic",
	}, []string{"topic"})

	m.resultsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_dropped_total",
		Help:      "Results dropped before delivery, by reason",
	}, []string{"reason"})

	m.resultsDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_delivered_total",
		Help:      "Classified results delivered to client connections",
	})

	m.fanoutSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "result_fanout_size",
		Help:      "Connections targeted per classified result",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	m.storeWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_writes_total",
		Help:      "Classified results written through to the result store",
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Result store write failures",
	})

	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Result store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.clientsConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clients_connected",
		Help:      "Currently connected WebSocket clients",
	})

	m.brokerConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broker_connected",
		Help:      "1 when the broker connection is up, 0 otherwise",
	})

	m.queueDepth = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_depth",
		Help:      "Buffered messages per inbound topic queue",
	}, []string{"queue"})

	m.queueDrops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_drops_total",
		Help:      "Messages dropped by inbound topic queues, by reason",
	}, []string{"queue", "reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by endpoint, method and status code",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// RecordFramePublished increments the published-frames counter for a topic.
func RecordFramePublished(topic string) {
	globalManager.framesPublished.WithLabelValues(topic).Inc()
}

// RecordFrameRejected increments the rejected-frames counter for a reason.
func RecordFrameRejected(reason string) {
	globalManager.framesRejected.WithLabelValues(reason).Inc()
}

// RecordPublishError increments the publish-error counter for a topic.
func RecordPublishError(topic string) {
	globalManager.publishErrors.WithLabelValues(topic).Inc()
}

// RecordResultReceived increments the received-results counter for a topic.
func RecordResultReceived(topic string) {
	globalManager.resultsReceived.WithLabelValues(topic).Inc()
}

// RecordResultDropped increments the dropped-results counter for a reason.
func RecordResultDropped(reason string) {
	globalManager.resultsDropped.WithLabelValues(reason).Inc()
}

// RecordResultDelivered records a result delivered to fanout connections.
func RecordResultDelivered(fanout int) {
	globalManager.resultsDelivered.Add(float64(fanout))
	globalManager.fanoutSize.Observe(float64(fanout))
}

// RecordStoreWrite increments the store write counter.
func RecordStoreWrite() {
	globalManager.storeWrites.Inc()
}

// RecordStoreError increments the store error counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordStoreWriteLatency records store write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// UpdateClientsConnected sets the connected clients gauge.
func UpdateClientsConnected(count int) {
	globalManager.clientsConnected.Set(float64(count))
}

// UpdateBrokerConnected sets the broker connectivity gauge.
func UpdateBrokerConnected(connected bool) {
	if connected {
		globalManager.brokerConnected.Set(1)
		return
	}
	globalManager.brokerConnected.Set(0)
}

// UpdateQueueDepth sets the depth gauge for an inbound queue.
func UpdateQueueDepth(queue string, depth int) {
	globalManager.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordQueueDrop increments the drop counter for an inbound queue.
func RecordQueueDrop(queue, reason string) {
	globalManager.queueDrops.WithLabelValues(queue, reason).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
