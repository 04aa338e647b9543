package constants

// ============================================================================
// Validation Error Messages
// ============================================================================

const (
	ErrVerifierRequired  = "verifier is required"
	ErrStoreRequired     = "store is required"
	ErrPolicyRequired    = "redaction policy is required"
	ErrNextRequired      = "next processor is required"
	ErrSecretKeyRequired = "secretKey is required"
	ErrAlgorithmRequired = "algorithm is required"
)

// ============================================================================
// Redaction Policy Error Messages
// ============================================================================

const (
	ErrPolicyEmpty      = "redaction policy has no rules"
	ErrPolicyVersion    = "redaction policy version is required"
	ErrPolicyOpen       = "open redaction policy %s: %w"
	ErrPolicyDecode     = "decode redaction policy: %w"
	ErrRuleEmptyPattern = "redaction rule %d: empty pattern"
	ErrRuleNegativeMask = "redaction rule %q: negative mask length %d"
	ErrRuleDuplicate    = "redaction rule %q: duplicate pattern"
	ErrPayloadDecode    = "decode payload: %w"
	ErrPayloadEncode    = "encode payload: %w"
)

// ============================================================================
// JWT Error Messages
// ============================================================================

const (
	ErrInvalidToken        = "invalid token: %w"
	ErrInvalidTokenClaims  = "invalid token claims"
	ErrMissingClaimSub     = "missing required claim: sub"
	ErrInvalidIssuer       = "invalid issuer: %v"
	ErrInvalidAudience     = "invalid audience: %v"
	ErrMissingScopePattern = "required scope missing: %s"
)

// ============================================================================
// Redis Error Messages
// ============================================================================

const (
	ErrPoolOptionsRequired = "pool options is required"
	ErrRedisURLParse       = "failed to parse redis url: %w"
	ErrRedisConnect        = "failed to connect to redis: %w"
	ErrRedisClientNil      = "redis client is nil"
	ErrStoreNil            = "store is nil"
	ErrRedisOperation      = "redis error: %w"
	ErrBasketDecode        = "decode basket: %w"
	ErrBasketEncode        = "encode basket: %w"
	ErrBasketUserRequired  = "basket user id is required"
)

// ============================================================================
// Telemetry Error Messages
// ============================================================================

const (
	ErrOTLPConn          = "create otlp connection: %w"
	ErrTraceExporter     = "create otlp trace exporter: %w"
	ErrLogExporter       = "create otlp log exporter: %w"
	ErrTelemetryResource = "create telemetry resource: %w"
)

// ============================================================================
// Failure Reasons (for logging and metrics)
// ============================================================================

const (
	ReasonMissingHeader = "missing_auth_header"
	ReasonInvalidToken  = "invalid_token"
	ReasonRedisError    = "redis_error"
	ReasonBadRequest    = "bad_request"
)
