package util

import "strings"

// SanitizeText drops bytes that break downstream storage and display: NUL
// and other control characters Postgres text columns reject, plus the
// U+FFFD replacement runes PDF extractors emit for unmapped glyphs.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	// NUL bytes are not valid in PostgreSQL text.
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\r' || ch == '\t':
			r = append(r, ch)
		case ch < 0x20 || ch == '�':
			// non-printing controls and replacement runes
		default:
			r = append(r, ch)
		}
	}
	return strings.TrimSpace(string(r))
}
