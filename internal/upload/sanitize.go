package upload

import "strings"

// illegalTextRune reports characters that are not representable in XML or
// break terminal/HTML display. These get replaced, not rejected: free-text
// fields should survive a sloppy producer.
func illegalTextRune(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0b || r == 0x0c:
		return true
	case r >= 0x0e && r <= 0x1f:
		return true
	case r >= 0xd800 && r <= 0xdfff:
		return true
	case r == 0xfffe || r == 0xffff:
		return true
	}
	return false
}

// SanitizeText replaces illegal characters with U+FFFD.
func SanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if illegalTextRune(r) {
			return '�'
		}
		return r
	}, s)
}
