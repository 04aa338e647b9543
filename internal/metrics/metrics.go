package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "basket"

// ============================================================================
// Histogram bucket configurations
// ============================================================================
//
// Using ExponentialBucketsRange for fine-grained latency measurement:
// - Denser buckets at lower latencies (where most requests fall)
// - Sparser buckets at higher latencies (tail detection)

const (
	// Request duration: 0.5ms ~ 2s (JWT + Redis round trip)
	requestDurationMin   = 0.0005 // 0.5ms
	requestDurationMax   = 2.0    // 2s
	requestDurationCount = 14     // ~2x factor between buckets

	// Redaction: 1µs ~ 10ms (in-memory, runs on every span/record)
	redactDurationMin   = 0.000001 // 1µs
	redactDurationMax   = 0.01     // 10ms (large nested payloads)
	redactDurationCount = 14

	// Redis operations: 1ms ~ 5s (network + pool wait)
	redisDurationMin   = 0.001 // 1ms
	redisDurationMax   = 5.0   // 5s (covers timeout scenarios)
	redisDurationCount = 12    // ~2x factor
)

// ============================================================================
// Histograms - Latency measurements
// ============================================================================

var (
	// RequestDuration: basket API latency (p50, p95, p99)
	// Labels: operation (get/update/delete), result (success/failure)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent processing basket API requests",
			Buckets:   prometheus.ExponentialBucketsRange(requestDurationMin, requestDurationMax, requestDurationCount),
		},
		[]string{"operation", "result"},
	)

	// RedactDuration: time spent inside a redaction hook per span/record
	// Labels: hook (span/log)
	RedactDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redact_duration_seconds",
			Help:      "Time spent redacting a telemetry item",
			Buckets:   prometheus.ExponentialBucketsRange(redactDurationMin, redactDurationMax, redactDurationCount),
		},
		[]string{"hook"},
	)

	// RedisDuration: repository round trips (includes pool wait)
	RedisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redis_duration_seconds",
			Help:      "Time spent on Redis basket operations",
			Buckets:   prometheus.ExponentialBucketsRange(redisDurationMin, redisDurationMax, redisDurationCount),
		},
		[]string{"operation"},
	)
)

// ============================================================================
// Counters - Request/Error counts
// ============================================================================

var (
	// RequestsTotal: basket API requests by operation and result
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of basket API requests",
		},
		[]string{"operation", "result"},
	)

	// ErrorsTotal: Errors by type (jwt_verify, redis, amqp)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by type",
		},
		[]string{"type"},
	)

	// RedactionsTotal: values masked before export
	// Labels: hook (span/log), kind (attribute/payload/event/body)
	RedactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redactions_total",
			Help:      "Total number of values masked before export",
		},
		[]string{"hook", "kind"},
	)

	// RedactFailuresTotal: redaction failures that fell open
	// Labels: hook (span/log), reason (payload_invalid/panic)
	RedactFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redact_failures_total",
			Help:      "Total number of redaction failures (item exported unchanged)",
		},
		[]string{"hook", "reason"},
	)

	// EventsConsumedTotal: integration events by type and result
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of integration events consumed",
		},
		[]string{"event", "result"},
	)
)

// ============================================================================
// Gauges - Current state
// ============================================================================

var (
	// RequestsInFlight: Concurrent requests being processed
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of basket API requests currently being processed",
		},
	)

	// RedactPolicyRules: size of the loaded sensitivity policy
	RedactPolicyRules = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redact_policy_rules",
			Help:      "Number of rules in the loaded redaction policy",
		},
		[]string{"version"},
	)
)

// ============================================================================
// Label constants
// ============================================================================

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Operation labels for RequestDuration, RequestsTotal and RedisDuration
const (
	OperationGet    = "get"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Hook labels for redaction metrics
const (
	HookSpan = "span"
	HookLog  = "log"
)

// Kind labels for RedactionsTotal
const (
	KindAttribute = "attribute"
	KindPayload   = "payload"
	KindEvent     = "event"
	KindBody      = "body"
)

// Reason labels for RedactFailuresTotal
const (
	ReasonPayloadInvalid = "payload_invalid"
	ReasonPanic          = "panic"
)

// Error type labels for ErrorsTotal
const (
	ErrorTypeJWTVerify = "jwt_verify"
	ErrorTypeRedis     = "redis"
	ErrorTypeAMQP      = "amqp"
)
