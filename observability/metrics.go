package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Total number of messages appended to the log",
		},
	)

	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_rejected_total",
			Help: "Total number of send attempts refused before or during persistence",
		},
		[]string{"reason"},
	)

	AppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_append_duration_seconds",
			Help:    "Duration of a durable append in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Live deliveries to active sessions by result",
		},
		[]string{"result"},
	)

	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Current number of connected sessions per transport",
		},
		[]string{"transport"},
	)

	WorkerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_worker_restarts_total",
			Help: "Number of supervised worker restarts after a failure",
		},
		[]string{"worker"},
	)

	PermanentEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_permanent_events_dropped_total",
			Help: "Events not handed to permanent sinks because the queue was full",
		},
	)

	ChannelLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_channel_length",
			Help: "Sampled number of buffered items per internal channel",
		},
		[]string{"channel"},
	)

	ChannelCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_channel_capacity",
			Help: "Buffer size per internal channel",
		},
		[]string{"channel"},
	)
)
