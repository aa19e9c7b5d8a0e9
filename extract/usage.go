package extract

import (
	"os"
	"regexp"
	"strings"
)

// usage matches lookups of one key.
type usage struct {
	qualified *regexp.Regexp // intl.t(…) or i18next.t(…)
	bare      *regexp.Regexp // t(…), i18next only
}

func (e *Extractor) usageOf(key string) usage {
	args := `\(\s*['"]` + regexp.QuoteMeta(key) + `['"]\s*[,)]`
	if e.dialect != DialectI18Next {
		return usage{qualified: regexp.MustCompile(`intl\.t` + args)}
	}
	return usage{
		qualified: regexp.MustCompile(`i18next\.t` + args),
		bare:      regexp.MustCompile(`\bt` + args),
	}
}

func (u usage) in(text string) bool {
	if u.qualified.MatchString(text) {
		return true
	}
	if u.bare == nil {
		return false
	}
	for _, m := range u.bare.FindAllStringIndex(text, -1) {
		if !strings.HasSuffix(text[:m[0]], "intl.") {
			return true
		}
	}
	return false
}

// Uses reports whether text looks up key in the extractor's dialect, with
// or without options.
func (e *Extractor) Uses(text, key string) bool {
	return e.usageOf(key).in(text)
}

// Unused returns the keys not looked up in any of files, in the order
// given. Unreadable files are skipped. onFile, when set, is called before
// each file is read; scanning stops early once every key has been seen.
func (e *Extractor) Unused(keys, files []string, onFile func(path string)) []string {
	remaining := make(map[string]usage, len(keys))
	for _, k := range keys {
		remaining[k] = e.usageOf(k)
	}

	for _, f := range files {
		if len(remaining) == 0 {
			break
		}
		if onFile != nil {
			onFile(f)
		}
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		text := string(data)
		for k, u := range remaining {
			if u.in(text) {
				delete(remaining, k)
			}
		}
	}

	var unused []string
	for _, k := range keys {
		if _, ok := remaining[k]; ok {
			unused = append(unused, k)
		}
	}
	return unused
}
