package config

import (
	"os"
	"sort"
	"strings"
)

// DetectLanguages finds language codes from the JSON files of a locales
// directory. File names are language codes: en.json, zh-CN.json.
// Files that do not look like a language code are skipped.
func DetectLanguages(localesDir string) []string {
	entries, err := os.ReadDir(localesDir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		lang := strings.TrimSuffix(name, ".json")
		if isLangCode(lang) {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// isLangCode checks if a string looks like a language code.
// Supports: en, ru, de, pt-BR, zh-CN, zh-Hant-TW.
func isLangCode(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts[0]) < 2 || len(parts[0]) > 3 {
		return false
	}
	for _, r := range parts[0] {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	for _, p := range parts[1:] {
		if len(p) < 2 || len(p) > 8 {
			return false
		}
	}
	return true
}

// UnconfiguredLanguages returns the languages with a file in the locales
// directory that are missing from the languages list.
func (c *Config) UnconfiguredLanguages() []string {
	var out []string
	for _, l := range DetectLanguages(c.AbsLocalesDir()) {
		if !c.HasLanguage(l) {
			out = append(out, l)
		}
	}
	return out
}
