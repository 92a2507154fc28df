package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of open client connections, logged in or not",
	})

	LoggedInSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_logged_in_sessions",
		Help: "Number of sessions logged in under some nickname",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total events processed by type",
	}, []string{"type"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_event_processing_seconds",
		Help:    "Time to process each event type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	HistorySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_history_size",
		Help: "Broadcasts currently held for replay",
	})

	DroppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_messages_total",
		Help: "Outbound messages dropped because a session queue was full",
	})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(LoggedInSessions)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(HistorySize)
	prometheus.MustRegister(DroppedMessages)
}
