package logging

import (
	"log/slog"
	"strings"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
)

// MaskUserID masks a user id with the policy's userId rule.
// Example: "550e8400-e29b-41d4-a716-446655440000" -> "550*********************************"
func (l *Logger) MaskUserID(userID string) string {
	masked, _ := l.policy.Mask(constants.AttrUserID, userID)
	return masked
}

// redactAttr masks a stdout attribute. The message is scanned for embedded
// "name:value" pairs, other string attributes are masked by their group path
// with dots removed, so slog.Group("buyer", slog.String("id", v)) and
// "buyer.id" are both looked up as "buyerid".
func redactAttr(policy *redact.Policy, groups []string, a slog.Attr, message bool) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	value := a.Value.String()

	var (
		masked string
		ok     bool
	)
	if message {
		masked, ok = policy.MaskPairs(value)
	} else {
		masked, ok = policy.Mask(fieldName(groups, a.Key), value)
	}
	if ok {
		a.Value = slog.StringValue(masked)
	}
	return a
}

func fieldName(groups []string, key string) string {
	if len(groups) > 0 {
		key = strings.Join(groups, "") + key
	}
	return strings.ReplaceAll(key, ".", "")
}
