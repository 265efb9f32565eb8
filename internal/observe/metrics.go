package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_clients",
		Help: "Number of connected clients",
	})

	acceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_accepted_total",
		Help: "Total accepted connections",
	})

	disconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_disconnects_total",
			Help: "Total client disconnects by reason",
		},
		[]string{"reason"}, // eof|error|line_too_long|slow_consumer|shutdown
	)

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total lines handled by type",
		},
		[]string{"type"}, // chat|nick|nick_invalid
	)

	broadcastFanout = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_broadcast_recipients",
		Help:    "Recipients per broadcast message",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_bytes_read_total",
		Help: "Total bytes read from clients",
	})

	bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_bytes_written_total",
		Help: "Total bytes written to clients",
	})

	pollBatch = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_poll_batch_events",
		Help:    "Readiness events returned per poll wake-up",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(
		onlineClients,
		acceptedTotal,
		disconnectsTotal,
		messagesTotal,
		broadcastFanout,
		bytesRead,
		bytesWritten,
		pollBatch,
	)
}

func AddOnline(delta float64)     { onlineClients.Add(delta) }
func IncAccepted()                { acceptedTotal.Inc() }
func IncDisconnect(reason string) { disconnectsTotal.WithLabelValues(reason).Inc() }
func IncMessage(kind string)      { messagesTotal.WithLabelValues(kind).Inc() }
func ObserveFanout(n int)         { broadcastFanout.Observe(float64(n)) }
func AddBytesRead(n int)          { bytesRead.Add(float64(n)) }
func AddBytesWritten(n int)       { bytesWritten.Add(float64(n)) }
func ObservePollBatch(n int)      { pollBatch.Observe(float64(n)) }
