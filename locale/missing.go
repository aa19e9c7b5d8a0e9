package locale

import "strings"

// QuoteChars lists the ASCII and CJK quote glyphs treated as noise around
// or instead of a translation.
const QuoteChars = "\"'“”‘’「」『』"

// IsMissing reports whether a stored translation should be treated as
// absent: empty after trimming, or made of quote characters only.
//
// The quote-only rule is an approximation; a translation that really is
// just quotes gets retranslated on every sync.
func IsMissing(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" {
		return true
	}
	return strings.Trim(s, QuoteChars) == ""
}

// MissingKeys returns the keys from keys that are absent from t or hold a
// missing value, in the order given.
func MissingKeys(t *Table, keys []string) []string {
	var out []string
	for _, k := range keys {
		v, ok := t.Get(k)
		if !ok || IsMissing(v) {
			out = append(out, k)
		}
	}
	return out
}
