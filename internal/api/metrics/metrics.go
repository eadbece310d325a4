// Package metrics defines the custom Prometheus metrics shared by the clinic
// services. Metrics are registered with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinic"

// ── Credential metrics ────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login outcomes.
// Label:
//   - result: "success", "rejected", "not_found", "upstream" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationFailuresTotal counts rejected bearer tokens.
// Label:
//   - reason: "expired", "signature", "malformed" or "invalid"
var TokenValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_failures_total",
		Help:      "Total number of bearer tokens rejected by the validator.",
	},
	[]string{"reason"},
)

// ── Registration metrics ──────────────────────────────────────────────────────

// RegistrationsTotal counts committed registrations by role.
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of users registered, by role.",
	},
	[]string{"role"},
)

// OutboxDispatchedTotal counts outbox events published to the bus.
var OutboxDispatchedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dispatched_total",
		Help:      "Total number of outbox events published to the event bus.",
	},
)

// OutboxFailuresTotal counts failed publish attempts. Failed events stay
// pending and are retried on the next tick.
var OutboxFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failures_total",
		Help:      "Total number of failed outbox publish attempts.",
	},
)

// OutboxPending tracks undispatched outbox events as of the last poll.
var OutboxPending = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_pending",
		Help:      "Number of outbox events waiting to be published.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsProcessedTotal counts consumed registration events.
// Label:
//   - result: "sent", "duplicate", "retry" or "dead_letter"
var NotificationsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_processed_total",
		Help:      "Total number of registration events handled by the consumer.",
	},
	[]string{"result"},
)

// NotificationDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (already sent, skipped) or "miss"
var NotificationDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks entries waiting in each consumer worker channel.
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of entries pending in each consumer worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDuration measures render + send time for one event.
var NotificationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification handling from dequeue to ack.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// DeadLetteredTotal counts entries moved to the dead-letter stream.
// Label:
//   - reason: "permanent" or "max_deliveries"
var DeadLetteredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dead_lettered_total",
		Help:      "Total number of stream entries moved to the dead-letter stream.",
	},
	[]string{"reason"},
)
