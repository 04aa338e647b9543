package constants

// ============================================================================
// ECS (Elastic Common Schema) Field Keys
// ============================================================================
//
// Reference: https://www.elastic.co/guide/en/ecs/current/ecs-field-reference.html

const (
	// Base fields
	ECSFieldTimestamp = "@timestamp"
	ECSFieldMessage   = "message"

	// Log fields
	ECSFieldLogLevel = "log.level"

	// Event fields
	ECSFieldEventAction   = "event.action"
	ECSFieldEventOutcome  = "event.outcome"
	ECSFieldEventReason   = "event.reason"
	ECSFieldEventDuration = "event.duration_ms"

	// HTTP fields
	ECSFieldHTTPMethod    = "http.request.method"
	ECSFieldHTTPRequestID = "http.request.id"
	ECSFieldURLPath       = "url.path"

	// Error fields
	ECSFieldErrorMessage = "error.message"

	// User fields
	ECSFieldUserID = "user.id"

	// Telemetry redaction fields (custom)
	ECSFieldRedactHook   = "redact.hook"
	ECSFieldRedactKey    = "redact.key"
	ECSFieldRedactPolicy = "redact.policy_version"
	ECSFieldSpanName     = "span.name"

	// Trace fields (ECS standard)
	ECSFieldTraceID = "trace.id"
	ECSFieldSpanID  = "span.id"
)

// ============================================================================
// ECS Event Actions
// ============================================================================

const (
	EventActionBasketGet    = "basket.get"
	EventActionBasketUpdate = "basket.update"
	EventActionBasketDelete = "basket.delete"
	EventActionRedact       = "telemetry.redact"
	EventActionEventHandle  = "integration_event.handle"
)

// ============================================================================
// ECS Event Outcomes
// ============================================================================

const (
	EventOutcomeSuccess = "success"
	EventOutcomeFailure = "failure"
)

// ============================================================================
// ECS Version
// ============================================================================

const (
	ECSVersion = "8.11"
)
