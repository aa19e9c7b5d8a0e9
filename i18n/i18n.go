// Package i18n localizes localesync's own command-line messages.
//
// It wraps gotext with T() and N(). Catalogs are embedded in the binary
// and selected at startup by Init.
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	logInfo(i18n.T("Watching %s (Ctrl+C to stop)"), root)
//	logSuccess(i18n.N("Processed %d file", "Processed %d files", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Directory structure: locales/{lang}/LC_MESSAGES/localesync.po
//
//go:embed all:locales
var locales embed.FS

const domain = "localesync"

var (
	po   *gotext.Locale
	lang string
)

// Init selects the catalog for lang. If lang is empty, it is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order.
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l

	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language selected by Init, or "" before Init.
func Language() string {
	return lang
}

// T translates a message. Without a translation the message is returned
// unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext: LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
