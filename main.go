// localesync keeps JSON locale files in sync with the keys used in
// JavaScript/TypeScript sources, translating new entries with an AI
// provider.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/minios-linux/localesync/config"
	"github.com/minios-linux/localesync/engine"
	"github.com/minios-linux/localesync/i18n"
	"github.com/minios-linux/localesync/locale"
	"github.com/minios-linux/localesync/settings"
	"github.com/minios-linux/localesync/translate"
	"github.com/minios-linux/localesync/watch"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, blue("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, green("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, yellow("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, red("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	apiKey  string
	verbose bool
	logJSON bool
)

// newLogger builds the diagnostic logger handed to every component.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if logJSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "localesync",
		Short: i18n.T("Keep JSON locale files in sync with source code"),
		Long: `localesync extracts translation keys from JavaScript and TypeScript
sources, adds them to the baseline locale file and translates them into
every configured language with an AI provider.

Commands:
  init        Create .localesync.yaml and the baseline locale file
  sync        Translate every baseline entry missing from other languages
  watch       Process saved source files as they change
  translate   Process the given source files once
  clean       Remove keys no source file uses
  status      Show per-language translation progress
  cache       Inspect or clear the translation cache
  auth        Manage stored API keys

Providers:
  siliconflow    SiliconFlow (default)
  openai         OpenAI
  groq           Groq Cloud
  google         Google AI Studio (Gemini API)
  anthropic      Anthropic
  ollama         Local Ollama server
  <any other>    Custom OpenAI-compatible endpoint (set provider.base_url)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Accept config-style names such as --api_key as well.
	root.SetGlobalNormalizationFunc(normalizeFlagName)
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (or "+config.APIKeyEnv+" env var)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write diagnostic logs as JSON")

	root.AddCommand(
		newInitCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newTranslateCmd(),
		newCleanCmd(),
		newStatusCmd(),
		newCacheCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("localesync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Session helpers
// ---------------------------------------------------------------------------

func loadConfig() (*config.Config, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	return config.Load(abs)
}

// resolveProvider merges the provider block, stored credentials and the
// API key lookup order into a translate.Provider.
func resolveProvider(cfg *config.Config) translate.Provider {
	id := cfg.Provider.ID
	override := translate.Provider{
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Proxy:   cfg.Provider.Proxy,
		Timeout: cfg.Provider.Timeout.Std(),
		APIKey:  cfg.ResolveAPIKey(apiKey, settings.GetAPIKey(id)),
	}
	if override.BaseURL == "" {
		override.BaseURL = settings.GetBaseURL(id)
	}
	return translate.ResolveProvider(id, override)
}

func validateProvider(prov translate.Provider) error {
	if prov.BaseURL == "" {
		return fmt.Errorf(i18n.T("provider '%s' needs an endpoint URL: set provider.base_url in %s"), prov.ID, config.FileName)
	}
	if prov.APIKey == "" && prov.ID != translate.ProviderOllama {
		return fmt.Errorf(i18n.T("provider '%s' requires an API key\n\n"+
			"Option 1: Store your API key:\n"+
			"  localesync auth set-key --provider %s YOUR_KEY\n\n"+
			"Option 2: Pass key directly:\n"+
			"  --api-key YOUR_KEY or export %s=YOUR_KEY"), prov.ID, prov.ID, config.APIKeyEnv)
	}
	return nil
}

// openSession builds a session for cfg. With remote set, a configured
// provider is required.
func openSession(cfg *config.Config, log *zerolog.Logger, remote bool) (*engine.Session, error) {
	opts := engine.Options{Config: cfg, Logger: log}
	if remote {
		prov := resolveProvider(cfg)
		if err := validateProvider(prov); err != nil {
			return nil, err
		}
		opts.Translator = translate.NewClient(prov, translate.ClientOptions{
			SystemPrompt: cfg.Prompt,
			MaxRetries:   cfg.Provider.MaxRetries,
			UserAgent:    "localesync/" + version,
			Logger:       log,
		})
		log.Debug().Str("provider", prov.ID).Str("model", prov.Model).Msg("translation provider ready")
	}
	return engine.New(opts)
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// Progress reporting
// ---------------------------------------------------------------------------

// barReporter draws a pass as a percentage bar on stderr.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func newBarReporter(title string) *barReporter {
	return &barReporter{bar: progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", title)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))}
}

func (r *barReporter) Progress(message string, increment int) {
	r.bar.Describe(fmt.Sprintf("[cyan]%s[reset]", message))
	_ = r.bar.Add(increment)
}

func (r *barReporter) Status(message string) {
	_ = r.bar.Clear()
	logInfo("%s", message)
}

func (r *barReporter) Done(message string) {
	if r.bar.State().CurrentPercent > 0 {
		_ = r.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	logSuccess("%s", message)
}

func (r *barReporter) Fail(err error) {
	_ = r.bar.Exit()
	fmt.Fprintln(os.Stderr)
	logError("%v", err)
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		force   bool
		library string
		langs   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Create .localesync.yaml and the baseline locale file"),
		Long: `Write a .localesync.yaml with default settings and create an empty
baseline locale file when none exists. Languages already present in the
locales directory are added to the configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(rootDir)
			if err != nil {
				return err
			}
			path := filepath.Join(abs, config.FileName)
			if fileExists(path) && !force {
				return fmt.Errorf(i18n.T("%s already exists (use --force to overwrite)"), path)
			}

			cfg := config.Defaults()
			cfg.SetRoot(abs)
			if library != "" {
				cfg.I18nLibrary = library
			}
			if langs != "" {
				cfg.Languages = splitList(langs)
				cfg.DefaultLanguage = cfg.Languages[0]
			}
			for _, l := range config.DetectLanguages(cfg.AbsLocalesDir()) {
				if !cfg.HasLanguage(l) {
					cfg.Languages = append(cfg.Languages, l)
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Write(abs); err != nil {
				return err
			}
			logSuccess(i18n.T("Wrote %s"), path)

			store := locale.NewStore(cfg.AbsLocalesDir())
			if !store.Exists(cfg.DefaultLanguage) {
				if err := store.Write(cfg.DefaultLanguage, locale.NewTable(), true); err != nil {
					return err
				}
				logSuccess(i18n.T("Created %s"), store.Path(cfg.DefaultLanguage))
			}
			logInfo(i18n.T("Languages: %s (baseline %s)"), strings.Join(cfg.Languages, ", "), cfg.DefaultLanguage)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().StringVar(&library, "library", "", "Call dialect: di18n or i18next")
	cmd.Flags().StringVar(&langs, "lang", "", "Languages, baseline first (comma-separated)")

	return cmd
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	var langs string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: i18n.T("Translate every baseline entry missing from other languages"),
		Long: `Translate every baseline entry that is absent, empty or quote-only in
another configured language, then write the updated locale files.

Examples:
  localesync sync
  localesync sync --lang en-US,fr-FR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if langs != "" {
				targets := intersectLanguages(cfg.TargetLanguages(), splitList(langs))
				if len(targets) == 0 {
					return errors.New(i18n.T("none of the requested languages is configured"))
				}
				cfg.Languages = append([]string{cfg.DefaultLanguage}, targets...)
			}

			log := newLogger()
			sess, err := openSession(cfg, &log, true)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			ctx, cancel := signalContext()
			defer cancel()
			res, err := sess.SyncFromBaseline(ctx, newBarReporter(i18n.T("syncing")))
			if err != nil {
				return fmt.Errorf(i18n.T("sync incomplete: %w"), err)
			}
			for _, lang := range filterOutLang(cfg.Languages, cfg.DefaultLanguage) {
				if n := res.PerLanguage[lang]; n > 0 {
					fmt.Fprintf(os.Stderr, "  %s %d\n", langCell(lang, langColumnWidth(cfg.Languages)), n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", "Only sync these languages (comma-separated)")

	return cmd
}

func closeSession(sess *engine.Session) {
	if err := sess.Close(); err != nil {
		logWarning("%v", err)
	}
}

// ---------------------------------------------------------------------------
// watch / translate
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: i18n.T("Process saved source files as they change"),
		Long: `Watch the project for saved .js, .jsx, .ts and .tsx files. New keys are
added to the baseline and translated into every other language after a
short quiet period. Saves are ignored when translation_mode is manual.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.AutoMode() {
				logWarning("%s", i18n.T("translation_mode is manual: saves are not processed, use 'localesync translate' instead"))
				return nil
			}

			log := newLogger()
			sess, err := openSession(cfg, &log, true)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			w, err := watch.New(cfg.Root(), sess, watch.Options{
				Exclude: []string{cfg.AbsLocalesDir()},
				Logger:  &log,
			})
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			logInfo(i18n.T("Watching %s (Ctrl+C to stop)"), cfg.Root())
			return w.Run(ctx)
		},
	}
}

func newTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <file>...",
		Short: i18n.T("Process the given source files once"),
		Long: `Extract keys from the given files, add new ones to the baseline and
translate them, as if each file had just been saved. Works in both
translation modes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			sess, err := openSession(cfg, &log, true)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			ctx, cancel := signalContext()
			defer cancel()
			var tasks []*engine.Task
			for _, f := range args {
				abs, err := filepath.Abs(f)
				if err != nil {
					return err
				}
				if !fileExists(abs) {
					logWarning(i18n.T("Skipping %s: not a file"), f)
					continue
				}
				tasks = append(tasks, sess.Submit(engine.Document{Path: abs}))
			}
			var failed int
			for _, t := range tasks {
				if err := t.Wait(ctx); err != nil {
					logError("%s: %v", t.Document.Path, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf(i18n.N("%d file failed", "%d files failed", failed), failed)
			}
			logSuccess(i18n.N("Processed %d file", "Processed %d files", len(tasks)), len(tasks))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// clean
// ---------------------------------------------------------------------------

func newCleanCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: i18n.T("Remove keys no source file uses"),
		Long: `Scan every source file of the project for usages of the baseline keys
and remove the unused ones from all locale files after confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			sess, err := openSession(cfg, &log, false)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			confirm := func(keys []string) bool {
				fmt.Fprintln(os.Stderr)
				logInfo(i18n.N("%d unused key:", "%d unused keys:", len(keys)), len(keys))
				for _, k := range keys {
					fmt.Fprintf(os.Stderr, "  %s\n", k)
				}
				if yes {
					return true
				}
				return askYesNo(i18n.T("Remove them from every locale file?"))
			}
			ctx, cancel := signalContext()
			defer cancel()
			_, err = sess.CleanUnused(ctx, newBarReporter(i18n.T("scanning")), confirm)
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Remove without asking")

	return cmd
}

func askYesNo(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show per-language translation progress"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			sess, err := openSession(cfg, &log, false)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			st, err := sess.Status()
			if err != nil {
				return err
			}
			showStatus(cfg, st)
			return nil
		},
	}
}

func showStatus(cfg *config.Config, st *engine.Status) {
	fmt.Fprintf(os.Stderr, "\n%s\n", blue(i18n.T("Project")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", cfg.Root())
	fmt.Fprintf(os.Stderr, "  Locales:    %s\n", cfg.AbsLocalesDir())
	fmt.Fprintf(os.Stderr, "  Library:    %s\n", cfg.I18nLibrary)
	fmt.Fprintf(os.Stderr, "  Mode:       %s\n", cfg.TranslationMode)
	fmt.Fprintf(os.Stderr, "  Provider:   %s\n", cfg.Provider.ID)
	cache := i18n.T("disabled")
	if st.CacheEnabled {
		cache = fmt.Sprintf(i18n.N("%d entry", "%d entries", st.CacheEntries), st.CacheEntries)
	}
	fmt.Fprintf(os.Stderr, "  Cache:      %s\n", cache)

	width := langColumnWidth(cfg.Languages)
	fmt.Fprintf(os.Stderr, "\n%s\n", blue(i18n.T("Translation Statistics")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, ls := range st.Languages {
		cell := langCell(ls.Language, width)
		switch {
		case ls.Baseline:
			fmt.Fprintf(os.Stderr, "  %s  %s %d\n", cell, i18n.T("baseline"), ls.Total)
		case !ls.Exists:
			fmt.Fprintf(os.Stderr, "  %s  %s  %s\n", cell, progressBar(0, 20), i18n.T("missing file"))
		default:
			fmt.Fprintf(os.Stderr, "  %s  %s  %d/%d\n", cell, progressBar(ls.Percent(), 20), ls.Translated, ls.Total)
		}
	}
	fmt.Fprintln(os.Stderr)

	if len(st.Unconfigured) > 0 {
		logWarning(i18n.T("Locale files not in languages: %s"), strings.Join(st.Unconfigured, ", "))
	}
}

// progressBar renders percent as a coloured bar followed by the number.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	var paint func(a ...any) string
	switch {
	case percent >= 100:
		paint = green
	case percent >= 50:
		paint = yellow
	default:
		paint = red
	}
	return fmt.Sprintf("%s %3d%%", paint(bar), percent)
}

// flagFromRegion returns the flag emoji for a two-letter region code.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var sb strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		sb.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return sb.String()
}

// langFlag returns the flag of a language code's region, if it has one.
func langFlag(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return flagFromRegion(region.String())
}

func langColumnWidth(langs []string) int {
	w := 0
	for _, l := range langs {
		if n := utf8.RuneCountInString(l); n > w {
			w = n
		}
	}
	return w
}

func langCell(code string, width int) string {
	flag := langFlag(code)
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, code)
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: i18n.T("Inspect or clear the translation cache"),
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: i18n.T("Show cache size and location"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			sess, err := openSession(cfg, &log, false)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			c := sess.Cache()
			if !c.Enabled() {
				logInfo("%s", i18n.T("Translation cache is disabled (enable_cache: false)"))
				return nil
			}
			fmt.Fprintf(os.Stderr, "  Path:     %s\n", c.Path())
			fmt.Fprintf(os.Stderr, "  Entries:  %d\n", c.Len())
			if info, err := os.Stat(c.Path()); err == nil {
				fmt.Fprintf(os.Stderr, "  Size:     %d bytes\n", info.Size())
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: i18n.T("Drop every cached translation"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger()
			sess, err := openSession(cfg, &log, false)
			if err != nil {
				return err
			}
			defer closeSession(sess)

			n := sess.Cache().Len()
			if err := sess.Cache().Clear(); err != nil {
				return err
			}
			logSuccess(i18n.N("Removed %d cached translation", "Removed %d cached translations", n), n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage stored API keys"),
		Long: `Store provider API keys in ` + "$XDG_DATA_HOME/localesync/auth.json" + ` (mode 0600).

Examples:
  localesync auth set-key sk-xxxx                      Key for siliconflow
  localesync auth set-key --provider groq gsk_xxxx     Key for groq
  localesync auth set-key --provider gateway --base-url http://localhost:8080/v1 KEY
  localesync auth show
  localesync auth remove --provider groq`,
	}

	cmd.AddCommand(
		newAuthSetKeyCmd(),
		newAuthShowCmd(),
		newAuthRemoveCmd(),
	)

	return cmd
}

func newAuthSetKeyCmd() *cobra.Command {
	var provider, baseURL string

	cmd := &cobra.Command{
		Use:   "set-key <key>",
		Short: i18n.T("Store an API key"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New(i18n.T("API key cannot be empty"))
			}
			if err := settings.SetAPIKey(provider, key, baseURL); err != nil {
				return err
			}
			logSuccess(i18n.T("API key for %s saved to %s"), provider, settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", translate.ProviderSiliconFlow, "Provider ID")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint URL for custom providers")

	return cmd
}

func newAuthShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"list", "ls"},
		Short:   i18n.T("Show stored API keys (masked)"),
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()
			if len(store) == 0 {
				logInfo("%s", i18n.T("No stored API keys"))
				return
			}
			for _, id := range store.IDs() {
				info := store[id]
				line := fmt.Sprintf("  %-14s %s", id, settings.MaskKey(info.Key))
				if info.BaseURL != "" {
					line += "  " + info.BaseURL
				}
				fmt.Fprintln(os.Stderr, line)
			}
		},
	}
}

func newAuthRemoveCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: i18n.T("Remove stored API keys"),
		Long:  `Remove the key of one provider, or every stored key when --provider is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" {
				if err := settings.Remove(provider); err != nil {
					return err
				}
				logSuccess(i18n.T("%s credentials removed"), provider)
				return nil
			}
			if err := settings.RemoveAll(); err != nil {
				return err
			}
			logSuccess("%s", i18n.T("All stored credentials removed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to remove (default: all)")

	return cmd
}

// ---------------------------------------------------------------------------
// Small helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// intersectLanguages keeps the entries of filter present in available,
// in filter order.
func intersectLanguages(available, filter []string) []string {
	set := make(map[string]bool, len(available))
	for _, l := range available {
		set[l] = true
	}
	var out []string
	for _, l := range filter {
		if l = strings.TrimSpace(l); set[l] {
			out = append(out, l)
		}
	}
	return out
}

func filterOutLang(langs []string, drop string) []string {
	var out []string
	for _, l := range langs {
		if l != drop {
			out = append(out, l)
		}
	}
	return out
}
