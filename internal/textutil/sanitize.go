package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes text and drops combining marks ("café" -> "cafe").
func foldDiacritics(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// SanitizePrefix converts an image filename prefix into a filesystem-safe
// token. Diacritics are folded; ASCII letters, digits, '-' and '_' are kept
// and everything else becomes '_'. Case and trailing separators are
// preserved, so "bespokedoc_" stays intact.
func SanitizePrefix(value string) string {
	value = foldDiacritics(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	out := strings.Trim(strings.ToLower(SanitizePrefix(value)), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
