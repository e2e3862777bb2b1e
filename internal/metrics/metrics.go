package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency per route and status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatepass_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// ScansTotal counts scan verifications and confirmations by result
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_scans_total",
		Help: "Ticket scans by operation and result",
	}, []string{"operation", "result"})

	// TicketsIssued counts issued ticket numbers (primary and member)
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_tickets_issued_total",
		Help: "Ticket numbers issued",
	})

	// IdentifierFallbacks counts emergency fallback identifiers. A
	// rising rate means the primary scheme's entropy is too low for
	// current volume.
	IdentifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_identifier_fallbacks_total",
		Help: "Ticket numbers minted through the random fallback space",
	})

	// EmailQueueDepth tracks the number of tasks waiting in the delivery queue
	EmailQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatepass_email_queue_depth",
		Help: "Email tasks currently queued",
	})

	// EmailsSent counts successfully delivered emails
	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_emails_sent_total",
		Help: "Emails delivered",
	})

	// EmailRetries counts retried email send attempts
	EmailRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_email_retries_total",
		Help: "Email send attempts that were retried",
	})

	// EmailsFailed counts emails abandoned after exhausting retries
	EmailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_emails_failed_total",
		Help: "Emails abandoned with a permanent failure",
	})
)
