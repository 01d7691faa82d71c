package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_clients",
		Help: "Number of currently connected clients",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages processed by type",
	}, []string{"type"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_event_processing_seconds",
		Help:    "Time to process each message type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	FramesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_frames_dropped_total",
		Help: "Complete frames that could not be decoded",
	})

	IgnoredMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_ignored_messages_total",
		Help: "Decoded messages with a missing or unknown type",
	})

	ProtocolViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_protocol_violations_total",
		Help: "Protocol violations by reason",
	}, []string{"reason"})

	SlowConsumerEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_slow_consumer_evictions_total",
		Help: "Sessions closed because their outbound queue was full",
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(FramesDropped)
	prometheus.MustRegister(IgnoredMessages)
	prometheus.MustRegister(ProtocolViolations)
	prometheus.MustRegister(SlowConsumerEvictions)
}
