// Package extract finds translation keys in JavaScript and TypeScript
// sources. Two call dialects are understood:
//
//	di18n     intl.t('保存', { … })
//	i18next   t('保存') or i18next.t('保存', { … }), but not intl.t(…)
//
// Keys are the literal first argument; template strings and computed keys
// are not recognised.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects the call pattern recognised as a translation lookup.
type Dialect string

const (
	DialectDI18N   Dialect = "di18n"
	DialectI18Next Dialect = "i18next"
)

// ParseDialect validates a dialect name. The empty string means di18n.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectDI18N:
		return DialectDI18N, nil
	case DialectI18Next:
		return DialectI18Next, nil
	default:
		return "", fmt.Errorf("unknown i18n library %q (want %s or %s)", s, DialectDI18N, DialectI18Next)
	}
}

var (
	di18nCall = regexp.MustCompile(`intl\.t\(\s*['"]([\s\S]*?)['"]\s*(?:,\s*([^)]*))?\)`)
	// The boundary group is captured so intl.t(…) can be told apart:
	// RE2 has no lookbehind.
	i18nextCall = regexp.MustCompile(`(^|[\s(.;,{}])(i18next\.t|t)\(\s*['"]([\s\S]*?)['"]\s*(?:,\s*([^)]*))?\)`)
)

// Extractor pulls translation keys out of source text.
type Extractor struct {
	dialect Dialect
}

// NewExtractor returns an extractor for d.
func NewExtractor(d Dialect) *Extractor {
	if d == "" {
		d = DialectDI18N
	}
	return &Extractor{dialect: d}
}

// Dialect returns the extractor's dialect.
func (e *Extractor) Dialect() Dialect {
	return e.dialect
}

// Keys returns the distinct keys referenced in text, in order of first
// appearance.
func (e *Extractor) Keys(text string) []string {
	var keys []string
	seen := make(map[string]bool)
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	if e.dialect == DialectI18Next {
		for _, m := range i18nextCall.FindAllStringSubmatchIndex(text, -1) {
			// m[2:4] boundary, m[4:6] callee, m[6:8] key
			if text[m[4]:m[5]] == "t" && text[m[2]:m[3]] == "." && strings.HasSuffix(text[:m[3]], "intl.") {
				continue
			}
			add(text[m[6]:m[7]])
		}
		return keys
	}

	for _, m := range di18nCall.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return keys
}
