package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics exposed by a protocol client.
type Metrics struct {
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionsActive  prometheus.Gauge
	ReconnectsSkipped  prometheus.Counter

	PacketsWrittenTotal  *prometheus.CounterVec
	PacketsBufferedTotal *prometheus.CounterVec
	PacketsDroppedTotal  *prometheus.CounterVec
	BacklogBytes         prometheus.Gauge

	AsyncQueueBytes    prometheus.Gauge
	AsyncQueueDropped  prometheus.Counter

	ChunksFlushedTotal *prometheus.CounterVec
	ChunkBytesTotal    prometheus.Counter
	VirtualFileRotationsTotal *prometheus.CounterVec

	RepliesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the protocol client's Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_connections_total",
				Help: "Connect attempts per protocol and result",
			},
			[]string{"protocol", "result"},
		),
		ConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartinspect_connections_active",
				Help: "Currently connected protocol instances",
			},
		),
		ReconnectsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smartinspect_reconnects_skipped_total",
				Help: "Reconnect attempts skipped within reconnect.interval",
			},
		),
		PacketsWrittenTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_packets_written_total",
				Help: "Packets successfully written to the wire",
			},
			[]string{"protocol"},
		),
		PacketsBufferedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_packets_buffered_total",
				Help: "Packets buffered in the backlog while disconnected",
			},
			[]string{"protocol"},
		),
		PacketsDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_packets_dropped_total",
				Help: "Packets dropped by backlog or async-queue eviction",
			},
			[]string{"protocol", "reason"},
		),
		BacklogBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartinspect_backlog_bytes",
				Help: "Bytes currently held in the backlog",
			},
		),
		AsyncQueueBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartinspect_async_queue_bytes",
				Help: "Bytes currently queued for async dispatch",
			},
		),
		AsyncQueueDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smartinspect_async_queue_dropped_total",
				Help: "Commands dropped from the async queue under pressure",
			},
		),
		ChunksFlushedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_chunks_flushed_total",
				Help: "Cloud chunk bundles flushed, by trigger",
			},
			[]string{"reason"},
		),
		ChunkBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smartinspect_chunk_bytes_total",
				Help: "Total bytes sent inside chunk bundles",
			},
		),
		VirtualFileRotationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_virtualfile_rotations_total",
				Help: "Cloud virtual-file rotations, by trigger",
			},
			[]string{"reason"},
		),
		RepliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartinspect_replies_total",
				Help: "Classified cloud server replies",
			},
			[]string{"kind"},
		),
	}
}

// RecordConnect records a connect attempt's outcome.
func (m *Metrics) RecordConnect(protocolName string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.ConnectionsTotal.WithLabelValues(protocolName, result).Inc()
	if success {
		m.ConnectionsActive.Inc()
	}
}

// RecordDisconnect decrements the active-connection gauge.
func (m *Metrics) RecordDisconnect() {
	m.ConnectionsActive.Dec()
}

// RecordPacketWritten increments the per-protocol write counter.
func (m *Metrics) RecordPacketWritten(protocolName string) {
	m.PacketsWrittenTotal.WithLabelValues(protocolName).Inc()
}

// RecordPacketBuffered increments the per-protocol backlog counter.
func (m *Metrics) RecordPacketBuffered(protocolName string) {
	m.PacketsBufferedTotal.WithLabelValues(protocolName).Inc()
}

// RecordPacketDropped increments the drop counter for reason (e.g.
// "backlog-full", "async-queue-full").
func (m *Metrics) RecordPacketDropped(protocolName, reason string) {
	m.PacketsDroppedTotal.WithLabelValues(protocolName, reason).Inc()
}

// RecordChunkFlush records a chunk bundle flush, by trigger reason
// ("size" or "age").
func (m *Metrics) RecordChunkFlush(reason string, bytes int) {
	m.ChunksFlushedTotal.WithLabelValues(reason).Inc()
	m.ChunkBytesTotal.Add(float64(bytes))
}

// RecordVirtualFileRotation records a rotation, by trigger reason
// ("size" or "calendar").
func (m *Metrics) RecordVirtualFileRotation(reason string) {
	m.VirtualFileRotationsTotal.WithLabelValues(reason).Inc()
}

// RecordReply records a classified server reply by kind.
func (m *Metrics) RecordReply(kind string) {
	m.RepliesTotal.WithLabelValues(kind).Inc()
}

// Handler exposes the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
