package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Wire metrics
	framesDecoded *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	messageSize   *prometheus.HistogramVec

	// Channel metrics
	requestsReceived  *prometheus.CounterVec
	responsesSent     *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	connectionsActive prometheus.Gauge
	connections       *prometheus.CounterVec
	disconnections    *prometheus.CounterVec
	queueDepth        prometheus.Gauge

	// Round metrics
	roundTransitions *prometheus.CounterVec
	timeoutsFired    *prometheus.CounterVec
	periodCount      prometheus.Gauge

	// Block metrics
	blockHeight     prometheus.Gauge
	blocksCommitted prometheus.Counter
	blockSize       prometheus.Gauge
	txsDelivered    prometheus.Counter
	txsRejected     *prometheus.CounterVec

	// Block store metrics
	storeSaves   prometheus.Counter
	storeLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		// Wire metrics
		framesDecoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_decoded_total",
				Help:      "Total number of wire frames decoded",
			},
			[]string{"kind"},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of frame decode failures",
			},
			[]string{"reason"},
		),
		messageSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "message_size_bytes",
				Help:      "Size of decoded messages in bytes",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 10), // 16 bytes to ~4 MB
			},
			[]string{"kind"},
		),

		// Channel metrics
		requestsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_received_total",
				Help:      "Total number of consensus engine requests received",
			},
			[]string{"kind"},
		),
		responsesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_sent_total",
				Help:      "Total number of responses sent to the consensus engine",
			},
			[]string{"kind"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "Time from request receipt to response send",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
		connectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connections_active",
				Help:      "Number of open consensus engine connections",
			},
		),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Total number of connection attempts",
			},
			[]string{"result"},
		),
		disconnections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disconnections_total",
				Help:      "Total number of closed connections",
			},
			[]string{"reason"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inbound_queue_depth",
				Help:      "Number of decoded requests waiting for the consumer",
			},
		),

		// Round metrics
		roundTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "round_transitions_total",
				Help:      "Total number of round transitions",
			},
			[]string{"event"},
		),
		timeoutsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timeouts_fired_total",
				Help:      "Total number of expired round deadlines",
			},
			[]string{"event"},
		),
		periodCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "period_count",
				Help:      "Current period counter of the replicated state",
			},
		),

		// Block metrics
		blockHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_height",
				Help:      "Current block height",
			},
		),
		blocksCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_committed_total",
				Help:      "Total number of committed blocks",
			},
		),
		blockSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_size_txs",
				Help:      "Number of transactions in the latest block",
			},
		),
		txsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_delivered_total",
				Help:      "Total number of delivered transactions",
			},
		),
		txsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_rejected_total",
				Help:      "Total number of rejected transactions",
			},
			[]string{"reason"},
		),

		// Block store metrics
		storeSaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_saves_total",
				Help:      "Total number of blocks written to the block store",
			},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_latency_seconds",
				Help:      "Latency of block store operations",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

func (m *PrometheusMetrics) registerMetrics() {
	m.registry.MustRegister(
		// Wire metrics
		m.framesDecoded,
		m.decodeErrors,
		m.messageSize,

		// Channel metrics
		m.requestsReceived,
		m.responsesSent,
		m.requestLatency,
		m.connectionsActive,
		m.connections,
		m.disconnections,
		m.queueDepth,

		// Round metrics
		m.roundTransitions,
		m.timeoutsFired,
		m.periodCount,

		// Block metrics
		m.blockHeight,
		m.blocksCommitted,
		m.blockSize,
		m.txsDelivered,
		m.txsRejected,

		// Block store metrics
		m.storeSaves,
		m.storeLatency,
	)
}

// Wire metrics implementation

func (m *PrometheusMetrics) IncFramesDecoded(kind string) {
	m.framesDecoded.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncDecodeErrors(reason string) {
	m.decodeErrors.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) ObserveMessageSize(kind string, size int) {
	m.messageSize.WithLabelValues(kind).Observe(float64(size))
}

// Channel metrics implementation

func (m *PrometheusMetrics) IncRequestsReceived(kind string) {
	m.requestsReceived.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncResponsesSent(kind string) {
	m.responsesSent.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) ObserveRequestLatency(kind string, latency time.Duration) {
	m.requestLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) SetConnectionsActive(count int) {
	m.connectionsActive.Set(float64(count))
}

func (m *PrometheusMetrics) IncConnections(result string) {
	m.connections.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) IncDisconnections(reason string) {
	m.disconnections.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// Round metrics implementation

func (m *PrometheusMetrics) IncRoundTransitions(event string) {
	m.roundTransitions.WithLabelValues(event).Inc()
}

func (m *PrometheusMetrics) IncTimeoutsFired(event string) {
	m.timeoutsFired.WithLabelValues(event).Inc()
}

func (m *PrometheusMetrics) SetPeriodCount(count uint64) {
	m.periodCount.Set(float64(count))
}

// Block metrics implementation

func (m *PrometheusMetrics) SetBlockHeight(height int64) {
	m.blockHeight.Set(float64(height))
}

func (m *PrometheusMetrics) IncBlocksCommitted() {
	m.blocksCommitted.Inc()
}

func (m *PrometheusMetrics) SetBlockSize(size int) {
	m.blockSize.Set(float64(size))
}

func (m *PrometheusMetrics) IncTxsDelivered() {
	m.txsDelivered.Inc()
}

func (m *PrometheusMetrics) IncTxsRejected(reason string) {
	m.txsRejected.WithLabelValues(reason).Inc()
}

// Block store metrics implementation

func (m *PrometheusMetrics) IncStoreSaves() {
	m.storeSaves.Inc()
}

func (m *PrometheusMetrics) ObserveStoreLatency(op string, latency time.Duration) {
	m.storeLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// Handler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) Handler() any {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

// HTTPHandler returns a typed HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
