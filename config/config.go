// Package config loads the .localesync.yaml project file.
//
// The file lives in the project (workspace) root. Every field is optional;
// an absent file yields Defaults(). A .env file next to it is loaded into
// the process environment first so LOCALESYNC_* variables can be kept out
// of version control.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file name.
const FileName = ".localesync.yaml"

// APIKeyEnv overrides the api_key field.
const APIKeyEnv = "LOCALESYNC_API_KEY"

// Translation modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .localesync.yaml structure.
type Config struct {
	// TranslationMode: "auto" translates on save, "manual" only on request.
	TranslationMode string `yaml:"translation_mode,omitempty"`
	// Enabled turns key extraction off entirely when false.
	Enabled *bool `yaml:"enabled,omitempty"`
	// DefaultLanguage is the baseline language; its file is authoritative.
	DefaultLanguage string `yaml:"default_language,omitempty"`
	// Languages lists every maintained language, baseline included.
	Languages []string `yaml:"languages,omitempty"`
	// APIKey for the translation provider. Prefer LOCALESYNC_API_KEY or
	// the credential store.
	APIKey string `yaml:"api_key,omitempty"`
	// BatchCharLimit bounds one translation request (default 1800).
	BatchCharLimit int `yaml:"batch_char_limit,omitempty"`
	// EnableCache toggles the persistent translation cache (default true).
	EnableCache *bool `yaml:"enable_cache,omitempty"`
	// LocalesDir holds <lang>.json, relative to the project root.
	LocalesDir string `yaml:"locales_dir,omitempty"`
	// I18nLibrary selects the call dialect: "di18n" or "i18next".
	I18nLibrary string `yaml:"i18n_library,omitempty"`
	// IgnoreKeys and IgnorePaths are exact strings or "*" patterns.
	IgnoreKeys  []string `yaml:"ignore_keys,omitempty"`
	IgnorePaths []string `yaml:"ignore_paths,omitempty"`
	// SortKeys writes locale files with sorted keys instead of keeping
	// their order.
	SortKeys bool `yaml:"sort_keys,omitempty"`
	// RequestDelay separates consecutive translation requests (default 1s).
	// An explicit 0s sends batches back to back.
	RequestDelay *Duration `yaml:"request_delay,omitempty"`
	// Debounce is the quiet period before a burst of saves is processed
	// (default 500ms).
	Debounce Duration `yaml:"debounce,omitempty"`
	// Provider selects and tunes the translation service.
	Provider ProviderConfig `yaml:"provider,omitempty"`
	// Prompt overrides the system prompt sent to the provider.
	Prompt string `yaml:"prompt,omitempty"`

	root string
}

// ProviderConfig is the provider block.
type ProviderConfig struct {
	// ID: siliconflow (default), openai, groq, ollama, google, anthropic,
	// or any other name for a custom OpenAI-compatible endpoint.
	ID         string   `yaml:"id,omitempty"`
	BaseURL    string   `yaml:"base_url,omitempty"`
	Model      string   `yaml:"model,omitempty"`
	Timeout    Duration `yaml:"timeout,omitempty"`
	Proxy      string   `yaml:"proxy,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// Duration is a time.Duration written as "500ms" or "1s" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.TranslationMode == "" {
		c.TranslationMode = ModeAuto
	}
	if c.Enabled == nil {
		c.Enabled = boolPtr(true)
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "zh-CN"
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"zh-CN", "en-US", "es-ES", "fr-FR", "zh-TW"}
	}
	if c.BatchCharLimit <= 0 {
		c.BatchCharLimit = 1800
	}
	if c.EnableCache == nil {
		c.EnableCache = boolPtr(true)
	}
	if c.LocalesDir == "" {
		c.LocalesDir = "locales"
	}
	if c.I18nLibrary == "" {
		c.I18nLibrary = "di18n"
	}
	if c.RequestDelay == nil {
		c.RequestDelay = durationPtr(time.Second)
	}
	if c.Debounce == 0 {
		c.Debounce = Duration(500 * time.Millisecond)
	}
	if c.Provider.ID == "" {
		c.Provider.ID = "siliconflow"
	}
}

func boolPtr(b bool) *bool { return &b }

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .env and .localesync.yaml from rootDir, applies defaults and
// validates the result. A missing config file is not an error.
func Load(rootDir string) (*Config, error) {
	envPath := filepath.Join(rootDir, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	c := &Config{}
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c.applyDefaults()
	c.root = rootDir
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.TranslationMode {
	case ModeAuto, ModeManual:
	default:
		return fmt.Errorf("translation_mode must be %q or %q, got %q", ModeAuto, ModeManual, c.TranslationMode)
	}
	switch c.I18nLibrary {
	case "di18n", "i18next":
	default:
		return fmt.Errorf("i18n_library must be \"di18n\" or \"i18next\", got %q", c.I18nLibrary)
	}

	seen := make(map[string]bool, len(c.Languages))
	for _, lang := range c.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("languages: %q is not a valid language tag", lang)
		}
		if seen[lang] {
			return fmt.Errorf("languages: %q listed twice", lang)
		}
		seen[lang] = true
	}
	if _, err := language.Parse(c.DefaultLanguage); err != nil {
		return fmt.Errorf("default_language: %q is not a valid language tag", c.DefaultLanguage)
	}
	if c.BatchCharLimit < 100 {
		return fmt.Errorf("batch_char_limit must be at least 100, got %d", c.BatchCharLimit)
	}
	if c.BatchDelay() < 0 || c.Debounce < 0 {
		return fmt.Errorf("request_delay and debounce must not be negative")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider.max_retries must not be negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Root returns the directory the config was loaded from.
func (c *Config) Root() string {
	return c.root
}

// SetRoot sets the project root for configs built in code.
func (c *Config) SetRoot(dir string) {
	c.root = dir
}

// IsEnabled reports whether key extraction is on.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CacheEnabled reports whether the translation cache is on.
func (c *Config) CacheEnabled() bool {
	return c.EnableCache == nil || *c.EnableCache
}

// BatchDelay returns request_delay, or 1s when it was never set.
func (c *Config) BatchDelay() time.Duration {
	if c.RequestDelay == nil {
		return time.Second
	}
	return c.RequestDelay.Std()
}

// AutoMode reports whether saves trigger translation.
func (c *Config) AutoMode() bool {
	return c.TranslationMode == ModeAuto
}

// AbsLocalesDir returns the locales directory as an absolute path.
func (c *Config) AbsLocalesDir() string {
	if filepath.IsAbs(c.LocalesDir) {
		return c.LocalesDir
	}
	return filepath.Join(c.root, c.LocalesDir)
}

// HasLanguage reports whether lang is configured.
func (c *Config) HasLanguage(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// TargetLanguages returns the configured languages except the baseline.
func (c *Config) TargetLanguages() []string {
	out := make([]string, 0, len(c.Languages))
	for _, l := range c.Languages {
		if l != c.DefaultLanguage {
			out = append(out, l)
		}
	}
	return out
}

// ResolveAPIKey returns the first non-empty key in lookup order: the
// explicit flag value, LOCALESYNC_API_KEY, the api_key field, then
// stored (the credential store).
func (c *Config) ResolveAPIKey(flag, stored string) string {
	for _, k := range []string{flag, os.Getenv(APIKeyEnv), c.APIKey, stored} {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return ""
}

// Write saves c as .localesync.yaml in dir.
func (c *Config) Write(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
