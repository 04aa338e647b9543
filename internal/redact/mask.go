package redact

import (
	"strings"
	"unicode/utf8"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
)

// Mask returns value with its trailing characters replaced by '*' when field
// matches a rule. The boolean is false when no rule applies; value is then
// returned as-is and must not be treated as masked.
//
// Example with userId (33): a 36 character UUID keeps its first 3 characters.
func (p *Policy) Mask(field, value string) (string, bool) {
	rule, ok := p.Lookup(field)
	if !ok {
		return value, false
	}
	return maskTail(value, rule.MaskChars), true
}

// maskTail keeps len-n leading characters and masks the rest. Length is
// counted in runes so the output stays valid UTF-8 and has the same
// character count as the input.
func maskTail(value string, n int) string {
	total := utf8.RuneCountInString(value)
	if total == 0 {
		return ""
	}
	maskLen := min(n, total)
	visible := total - maskLen

	cut := 0
	for i := 0; i < visible; i++ {
		_, size := utf8.DecodeRuneInString(value[cut:])
		cut += size
	}

	var b strings.Builder
	b.Grow(cut + maskLen)
	b.WriteString(value[:cut])
	b.WriteString(strings.Repeat(constants.MaskChar, maskLen))
	return b.String()
}
