package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// {{count}} or {name}
	placeholderPattern = regexp.MustCompile(`\{\{[^{}]+\}\}|\{[^{}]+\}`)
	numberPrefix       = regexp.MustCompile(`^\s*(\d+)\.\s*`)
)

const quoteChars = "\"'“”‘’「」『』"

// Placeholders returns the interpolation tokens of s in order of
// appearance.
func Placeholders(s string) []string {
	return placeholderPattern.FindAllString(s, -1)
}

// checkPlaceholders reports ErrMismatch when a placeholder of source is
// missing from translated.
func checkPlaceholders(source, translated string) error {
	for _, p := range Placeholders(source) {
		if !strings.Contains(translated, p) {
			return fmt.Errorf("%w: placeholder %s lost", ErrMismatch, p)
		}
	}
	return nil
}

func isQuote(r rune) bool {
	return strings.ContainsRune(quoteChars, r)
}

// wrappedInQuotes reports whether s starts and ends with a quote glyph.
func wrappedInQuotes(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return isQuote(first) && isQuote(last)
}

// cleanLine normalizes one response line: the "N. " prefix is removed,
// then wrapping quotes are stripped repeatedly unless the source itself
// is quoted.
func cleanLine(line, source string) string {
	s := strings.TrimSpace(numberPrefix.ReplaceAllString(line, ""))
	if wrappedInQuotes(source) {
		return s
	}
	for wrappedInQuotes(s) {
		_, first := utf8.DecodeRuneInString(s)
		_, last := utf8.DecodeLastRuneInString(s)
		s = strings.TrimSpace(s[first : len(s)-last])
	}
	return s
}

// acceptLine cleans line and checks it against source.
func acceptLine(line, source string) (string, error) {
	s := cleanLine(line, source)
	if s == "" {
		return "", fmt.Errorf("%w: empty translation", ErrMismatch)
	}
	if err := checkPlaceholders(source, s); err != nil {
		return "", err
	}
	return s, nil
}

// lineNumber returns the "N." prefix of line, or 0 when it has none.
func lineNumber(line string) int {
	m := numberPrefix.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// responseLines splits a response into its non-blank lines.
func responseLines(resp string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(resp, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
