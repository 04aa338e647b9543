package redact

import "strings"

// MaskPairs masks the value of the first sensitive "name:value" fragment in
// free text, such as a rendered log message. Only the value bytes change;
// the field name keeps the casing it had in text.
//
//	Deleting basket for userId:6f1c2d9e-...   -> Deleting basket for userId:***...
//	{"UserId":"6f1c2d9e-...","Id":"..."}      -> {"UserId":"***...","Id":"..."}
//
// "=" is accepted as a separator in addition to ":" so logfmt bodies are
// covered. Later fragments in the same text are left untouched. The boolean
// is false when nothing was masked, in which case text is returned as-is.
func (p *Policy) MaskPairs(text string) (string, bool) {
	if p == nil || text == "" {
		return text, false
	}

	// Occurrences are searched in an ASCII-lowered copy; byte offsets match text.
	lower := asciiLower(text)
	next := make([]int, len(p.folded))
	for i := range next {
		next[i] = -2
	}

	for from := 0; from < len(text); {
		start, idx := p.nextPattern(lower, from, next)
		if idx < 0 {
			return text, false
		}

		vStart, vEnd, nameEnd, ok := pairValue(text, start+len(p.folded[idx]))
		if !ok {
			from = start + 1
			// Every later occurrence inside the same name run reaches the same
			// separator position and fails the same way.
			if p.nameOnly && nameEnd > from {
				from = nameEnd
			}
			continue
		}

		masked, ok := p.Mask(p.rules[idx].Pattern, text[vStart:vEnd])
		if !ok {
			return text, false
		}

		var b strings.Builder
		b.Grow(len(text))
		b.WriteString(text[:vStart])
		b.WriteString(masked)
		b.WriteString(text[vEnd:])
		return b.String(), true
	}
	return text, false
}

// nextPattern finds the earliest pattern occurrence at or after from. At equal
// offsets the rule with higher precedence wins. idx is -1 when none is found.
// next caches each pattern's last known occurrence (-1 none left, -2 unknown)
// so a pattern is only searched again once from has moved past it.
func (p *Policy) nextPattern(lower string, from int, next []int) (start, idx int) {
	start, idx = -1, -1
	for i, pattern := range p.folded {
		if next[i] == -1 {
			continue
		}
		if next[i] < from {
			at := strings.Index(lower[from:], pattern)
			if at < 0 {
				next[i] = -1
				continue
			}
			next[i] = at + from
		}
		if start < 0 || next[i] < start {
			start, idx = next[i], i
		}
	}
	return start, idx
}

// asciiLower lower-cases ASCII letters only, so offsets into the result are
// valid in s. s is returned as-is when it has no upper-case ASCII letter.
func asciiLower(s string) string {
	i := 0
	for i < len(s) && !(s[i] >= 'A' && s[i] <= 'Z') {
		i++
	}
	if i == len(s) {
		return s
	}
	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// pairValue locates the value that follows a field name ending at i.
// nameEnd is where the field name's continuation stopped.
func pairValue(text string, i int) (start, end, nameEnd int, ok bool) {
	j := i
	for j < len(text) && isNameByte(text[j]) {
		j++
	}
	nameEnd = j
	if j < len(text) && text[j] == '"' {
		j++
	}
	j = skipBlanks(text, j)
	if j >= len(text) || (text[j] != ':' && text[j] != '=') {
		return 0, 0, nameEnd, false
	}
	j = skipBlanks(text, j+1)
	if j < len(text) && text[j] == '"' {
		j++
	}

	start = j
	for j < len(text) && !isValueDelim(text[j]) {
		j++
	}
	if j == start {
		return 0, 0, nameEnd, false
	}
	return start, j, nameEnd, true
}

func skipBlanks(text string, j int) int {
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	return j
}

func allNameBytes(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '.' || c == '-'
}

func isValueDelim(c byte) bool {
	switch c {
	case ',', '}', '"', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
