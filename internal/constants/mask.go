package constants

// ============================================================================
// Masking Configuration
// ============================================================================

const (
	// MaskChar replaces each hidden character of a sensitive value
	MaskChar = "*"
)

// ============================================================================
// Token Prefixes
// ============================================================================

const (
	BearerPrefix      = "Bearer "
	BearerPrefixLower = "bearer "
)

// ============================================================================
// Span Attribute Keys
// ============================================================================
//
// Names are chosen so the sensitivity policy matches them (userId, buyerId).

const (
	AttrUserID            = "userId"
	AttrBasketItems       = "basket.items"
	AttrBasketUniqueCount = "basket.items.unique.count"
	AttrEventID           = "event.id"
	AttrEventUserID       = "event.userId"
	AttrEventType         = "event.type"
	AttrMessagingPayload  = "messaging.payload"
	AttrRequestID         = "request.id"
)
