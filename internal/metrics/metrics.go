package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventSub endpoint metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sususerlogger_eventsub_messages_total",
			Help: "Total number of authenticated EventSub messages by kind and subscription type",
		},
		[]string{"kind", "subscription_type"},
	)

	VerificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sususerlogger_eventsub_verification_failures_total",
			Help: "Total number of requests rejected by signature verification",
		},
	)

	MalformedPayloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sususerlogger_eventsub_malformed_payloads_total",
			Help: "Total number of authenticated requests whose body failed to parse",
		},
	)

	// Delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sususerlogger_deliveries_total",
			Help: "Total number of Discord webhook deliveries by outcome",
		},
		[]string{"status"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sususerlogger_delivery_duration_seconds",
			Help:    "Duration of Discord webhook executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Queue metrics
	QueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sususerlogger_queue_dropped_total",
			Help: "Total number of delivery jobs dropped because the queue was full",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sususerlogger_queue_depth",
			Help: "Current number of delivery jobs waiting in the queue",
		},
	)
)
