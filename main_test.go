package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/minios-linux/localesync/config"
	"github.com/minios-linux/localesync/translate"
)

func TestProgressBar(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })

	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{"clamps below zero", -10, 4, "░░░░   0%"},
		{"mid range", 50, 4, "██░░  50%"},
		{"clamps above hundred", 120, 4, "████ 100%"},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFlagFromRegion(t *testing.T) {
	if got := flagFromRegion("us"); got != "🇺🇸" {
		t.Fatalf("flagFromRegion(us) = %q, want %q", got, "🇺🇸")
	}
	if got := flagFromRegion("USA"); got != "" {
		t.Fatalf("flagFromRegion(USA) = %q, want empty", got)
	}
	if got := flagFromRegion("1A"); got != "" {
		t.Fatalf("flagFromRegion(1A) = %q, want empty", got)
	}
}

func TestLangHelpers(t *testing.T) {
	if got := langFlag("zh-TW"); got != "🇹🇼" {
		t.Fatalf("langFlag(zh-TW) = %q, want %q", got, "🇹🇼")
	}
	if got := langFlag("fr"); got != "" {
		t.Fatalf("langFlag(fr) = %q, want empty", got)
	}
	if got := langFlag("not a tag"); got != "" {
		t.Fatalf("langFlag(invalid) = %q, want empty", got)
	}

	langs := []string{"en", "pt-BR", "zh-Hant"}
	if got := langColumnWidth(langs); got != len("zh-Hant") {
		t.Fatalf("langColumnWidth() = %d, want %d", got, len("zh-Hant"))
	}

	cell := langCell("es-ES", 6)
	if !strings.Contains(cell, "🇪🇸") || !strings.Contains(cell, "es-ES ") {
		t.Fatalf("langCell() = %q, want flag and padded code", cell)
	}
}

func TestIntersectLanguages(t *testing.T) {
	available := []string{"en-US", "fr-FR", "de-DE", "es-ES"}
	filter := []string{" fr-FR ", "es-ES", "it-IT"}
	want := []string{"fr-FR", "es-ES"}

	if got := intersectLanguages(available, filter); !reflect.DeepEqual(got, want) {
		t.Fatalf("intersectLanguages() = %#v, want %#v", got, want)
	}
}

func TestFilterOutLang(t *testing.T) {
	langs := []string{"zh-CN", "fr-FR", "zh-CN", "de-DE"}
	want := []string{"fr-FR", "de-DE"}

	if got := filterOutLang(langs, "zh-CN"); !reflect.DeepEqual(got, want) {
		t.Fatalf("filterOutLang() = %#v, want %#v", got, want)
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(" en-US, ,fr-FR,"); !reflect.DeepEqual(got, []string{"en-US", "fr-FR"}) {
		t.Fatalf("splitList() = %#v", got)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(filePath, []byte("ok"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	if !fileExists(filePath) {
		t.Fatalf("fileExists(file) = false, want true")
	}
	if fileExists(dir) {
		t.Fatalf("fileExists(directory) = true, want false")
	}
	if fileExists(filepath.Join(dir, "missing.txt")) {
		t.Fatalf("fileExists(missing) = true, want false")
	}
}

func TestResolveAndValidateProvider(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(config.APIKeyEnv, "")
	old := apiKey
	t.Cleanup(func() { apiKey = old })

	cfg := config.Defaults()
	apiKey = ""
	prov := resolveProvider(cfg)
	if prov.ID != translate.ProviderSiliconFlow || prov.BaseURL == "" {
		t.Fatalf("resolveProvider() = %+v, want siliconflow defaults", prov)
	}
	if err := validateProvider(prov); err == nil {
		t.Fatal("validateProvider() without key succeeded")
	}

	apiKey = "sk-flag"
	prov = resolveProvider(cfg)
	if prov.APIKey != "sk-flag" {
		t.Fatalf("APIKey = %q, want flag value", prov.APIKey)
	}
	if err := validateProvider(prov); err != nil {
		t.Fatalf("validateProvider() error: %v", err)
	}

	cfg.Provider.ID = "my-gateway"
	if err := validateProvider(resolveProvider(cfg)); err == nil {
		t.Fatal("custom provider without base_url accepted")
	}
}

func TestInitCommandWritesConfigAndBaseline(t *testing.T) {
	dir := t.TempDir()
	old := rootDir
	t.Cleanup(func() { rootDir = old })

	cmd := newRootCmd()
	cmd.SetArgs([]string{"init", "--root", dir, "--lang", "zh-CN,en-US"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"zh-CN", "en-US"}) {
		t.Fatalf("Languages = %v", cfg.Languages)
	}
	if !fileExists(filepath.Join(dir, "locales", "zh-CN.json")) {
		t.Fatal("baseline file not created")
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"init", "--root", dir})
	if err := cmd.Execute(); err == nil {
		t.Fatal("second init without --force succeeded")
	}
}

func TestUnderscoreFlagNames(t *testing.T) {
	old := apiKey
	t.Cleanup(func() { apiKey = old })

	cmd := newRootCmd()
	if err := cmd.PersistentFlags().Parse([]string{"--api_key", "sk-test"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if apiKey != "sk-test" {
		t.Fatalf("apiKey = %q, want sk-test", apiKey)
	}
}
