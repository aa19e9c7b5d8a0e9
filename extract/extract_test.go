package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestKeysDI18N(t *testing.T) {
	t.Parallel()

	src := `
const a = intl.t('保存');
const b = intl.t("你好 {name}", { name });
const c = intl.t(
  '多行'
);
const d = t('不是这个');
const again = intl.t('保存');
`
	got := NewExtractor(DialectDI18N).Keys(src)
	want := []string{"保存", "你好 {name}", "多行"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestKeysI18Next(t *testing.T) {
	t.Parallel()

	src := `t('first')
const x = i18next.t("second", { count });
render(t('third'));
const skip = intl.t('di18n only');
const alsoSkip = format('nope');
{t("fourth")}`
	got := NewExtractor(DialectI18Next).Keys(src)
	want := []string{"first", "second", "third", "fourth"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", DialectDI18N, false},
		{"di18n", DialectDI18N, false},
		{"I18Next", DialectI18Next, false},
		{"gettext", "", true},
	}
	for _, tc := range tests {
		got, err := ParseDialect(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseDialect(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestUses(t *testing.T) {
	t.Parallel()

	di := NewExtractor(DialectDI18N)
	if !di.Uses(`intl.t('a.b', {x})`, "a.b") {
		t.Error("di18n: call with options not found")
	}
	if di.Uses(`intl.t('aXb')`, "a.b") {
		t.Error("di18n: key must be matched literally")
	}
	if di.Uses(`intl.t('a.b.c')`, "a.b") {
		t.Error("di18n: prefix of a longer key must not count")
	}

	ix := NewExtractor(DialectI18Next)
	if !ix.Uses(`return t("{{count}} items")`, "{{count}} items") {
		t.Error("i18next: bare t() not found")
	}
	if !ix.Uses(`i18next.t('k')`, "k") {
		t.Error("i18next: i18next.t() not found")
	}
	if ix.Uses(`intl.t('k')`, "k") {
		t.Error("i18next: intl.t() must not count")
	}
	if ix.Uses(`format('k')`, "k") {
		t.Error("i18next: t must be a whole word")
	}
}

func TestUnused(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	a := filepath.Join(tmp, "a.ts")
	b := filepath.Join(tmp, "b.tsx")
	if err := os.WriteFile(a, []byte(`intl.t('used')`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte(`<p>{intl.t("also used")}</p>`), 0644); err != nil {
		t.Fatal(err)
	}

	var scanned []string
	got := NewExtractor(DialectDI18N).Unused(
		[]string{"used", "stale", "also used"},
		[]string{a, b, filepath.Join(tmp, "missing.js")},
		func(p string) { scanned = append(scanned, p) },
	)
	if !reflect.DeepEqual(got, []string{"stale"}) {
		t.Errorf("Unused() = %v", got)
	}
	if len(scanned) != 3 {
		t.Errorf("scanned %d files, want 3", len(scanned))
	}
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"debug.*", "exact"}, []string{"src/legacy/*", "*.test.ts"})

	keys := map[string]bool{
		"debug.info":  true,
		"debug":       false,
		"exact":       true,
		"exactly":     false,
		"xdebug.info": false,
	}
	for k, want := range keys {
		if got := m.ShouldIgnoreKey(k); got != want {
			t.Errorf("ShouldIgnoreKey(%q) = %v, want %v", k, got, want)
		}
	}

	paths := map[string]bool{
		"src/legacy/old.js":    true,
		"src/legacy/deep/x.js": true,
		"src/app.test.ts":      true,
		"src/app.ts":           false,
	}
	for p, want := range paths {
		if got := m.ShouldIgnorePath(p); got != want {
			t.Errorf("ShouldIgnorePath(%q) = %v, want %v", p, got, want)
		}
	}

	if got := m.FilterKeys([]string{"a", "debug.x", "b"}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("FilterKeys() = %v", got)
	}

	var nilMatcher *Matcher
	if nilMatcher.ShouldIgnoreKey("x") || nilMatcher.ShouldIgnorePath("x") {
		t.Error("nil matcher must ignore nothing")
	}
}

func TestFindSources(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	write := func(rel string) string {
		t.Helper()
		p := filepath.Join(tmp, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	app := write("src/app.tsx")
	util := write("src/util.js")
	write("node_modules/lib/index.js")
	write("locales/zh-CN.json")
	write("locales/helper.js")
	write("README.md")

	got, err := FindSources([]string{tmp}, filepath.Join(tmp, "locales"))
	if err != nil {
		t.Fatalf("FindSources: %v", err)
	}
	want := []string{app, util}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindSources() = %v, want %v", got, want)
	}
}
