package constants

// ============================================================================
// Service Identity
// ============================================================================

const (
	ServiceName    = "basket-api"
	ServiceVersion = "1.4.0"
)

// ============================================================================
// Environment Variable Names
// ============================================================================

const (
	// Logging
	EnvLogLevel    = "LOG_LEVEL"
	EnvEnvironment = "ENVIRONMENT"

	// Log levels
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"

	// Redaction
	EnvRedactPolicyFile = "REDACT_POLICY_FILE"

	// OpenTelemetry
	EnvOTelEnabled      = "OTEL_ENABLED"
	EnvOTelLogsEnabled  = "OTEL_LOGS_ENABLED"
	EnvOTelEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTelSamplingRate = "OTEL_SAMPLING_RATE"
)

// ============================================================================
// Default Values
// ============================================================================

const (
	// Environment
	DefaultEnvironment = "dev"
)
