package canon

import "strings"

// Clean removes bytes/runes we don't want in the database or downstream:
// NUL, ASCII controls except '\n' '\r' '\t', DEL, and C1 controls
// U+0080..U+009F. Invalid UTF-8 bytes are dropped too. Postgres rejects
// NUL inside text columns, so every source string passes through here
// before an upsert. Fast path returns s unchanged when nothing needs
// cleaning.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return false
	case r < 0x20 || r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	}
	return false
}
