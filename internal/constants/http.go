// Package constants provides centralized constant definitions for the basket service.
package constants

// ============================================================================
// HTTP Headers
// ============================================================================

const (
	// Request headers
	HeaderAuthorization = "authorization"
	HeaderRequestID     = "x-request-id"
	HeaderContentType   = "content-type"

	ContentTypeJSON = "application/json"
)

// ============================================================================
// HTTP Response Messages
// ============================================================================

const (
	MsgMissingAuthHeader = "Missing Authorization header"
	MsgInvalidToken      = "Invalid token"
	MsgMalformedBasket   = "Malformed basket"
	MsgInternalError     = "Internal error"
)

// ============================================================================
// HTTP Paths
// ============================================================================

const (
	PathMetrics = "/metrics"
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathBasket  = "/api/basket"
)

// ============================================================================
// Health Check
// ============================================================================

const (
	HealthOK = "ok"
)
