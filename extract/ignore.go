package extract

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher decides which keys and source paths are excluded from
// synchronization. Patterns are either exact strings or contain "*",
// which matches any run of characters (including "/").
type Matcher struct {
	keys  []pattern
	paths []pattern
}

type pattern struct {
	exact string
	re    *regexp.Regexp
}

func compilePatterns(list []string) []pattern {
	out := make([]pattern, 0, len(list))
	for _, p := range list {
		if p == "" {
			continue
		}
		if !strings.Contains(p, "*") {
			out = append(out, pattern{exact: p})
			continue
		}
		parts := strings.Split(p, "*")
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		out = append(out, pattern{re: regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")})
	}
	return out
}

func (p pattern) match(s string) bool {
	if p.re != nil {
		return p.re.MatchString(s)
	}
	return s == p.exact
}

// NewMatcher compiles the ignore lists.
func NewMatcher(ignoreKeys, ignorePaths []string) *Matcher {
	return &Matcher{
		keys:  compilePatterns(ignoreKeys),
		paths: compilePatterns(ignorePaths),
	}
}

// ShouldIgnoreKey reports whether key matches an ignore_keys pattern.
func (m *Matcher) ShouldIgnoreKey(key string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.keys {
		if p.match(key) {
			return true
		}
	}
	return false
}

// ShouldIgnorePath reports whether path matches an ignore_paths pattern.
// Paths are compared with forward slashes.
func (m *Matcher) ShouldIgnorePath(path string) bool {
	if m == nil {
		return false
	}
	path = filepath.ToSlash(path)
	for _, p := range m.paths {
		if p.match(path) {
			return true
		}
	}
	return false
}

// FilterKeys returns keys without the ignored ones, keeping order.
func (m *Matcher) FilterKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !m.ShouldIgnoreKey(k) {
			out = append(out, k)
		}
	}
	return out
}
