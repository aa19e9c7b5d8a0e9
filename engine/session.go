// Package engine runs translation passes over a workspace: the debounced
// save-triggered pass and the full baseline sync, both serialized through
// one exclusive lock and sharing one translation cache.
//
// All process-scoped state lives in a Session. Build one per workspace,
// feed it saved documents with Submit, and Close it on shutdown so pending
// cache writes reach the disk.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/minios-linux/localesync/cache"
	"github.com/minios-linux/localesync/config"
	"github.com/minios-linux/localesync/exclusive"
	"github.com/minios-linux/localesync/extract"
	"github.com/minios-linux/localesync/locale"
	"github.com/minios-linux/localesync/translate"
	"github.com/rs/zerolog"
)

var (
	// ErrNoWorkspace means the session has no project root.
	ErrNoWorkspace = errors.New("no workspace folder")
	// ErrBaselineNotConfigured means default_language is not in languages.
	ErrBaselineNotConfigured = errors.New("baseline language is not in the configured languages")
	// ErrBaselineMissing means the baseline locale file does not exist.
	ErrBaselineMissing = errors.New("baseline locale file does not exist")
	// ErrClosed settles tasks still queued when the session closes.
	ErrClosed = errors.New("session closed")
)

// Options holds the dependencies of a Session.
type Options struct {
	// Config is required; its Root is the workspace.
	Config *config.Config
	// Translator performs remote calls. Required unless every target
	// pair is a script conversion.
	Translator translate.Translator
	// Reporter receives progress of save-triggered passes. Default: a
	// LogReporter on Logger.
	Reporter Reporter
	// RetryDelay overrides DefaultRetryDelay.
	RetryDelay time.Duration
	Logger     *zerolog.Logger
}

// Session owns the lock, the cache and the pending queue of one workspace.
type Session struct {
	cfg       *config.Config
	root      string
	store     *locale.Store
	cache     *cache.Cache
	batcher   *translate.Batcher
	extractor *extract.Extractor
	matcher   *extract.Matcher
	lock      *exclusive.Lock
	coalescer *Coalescer
	rep       Reporter
	log       zerolog.Logger
	syncing   atomic.Bool
}

// New builds a session from opts.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("engine: nil config")
	}
	cfg := opts.Config
	dialect, err := extract.ParseDialect(cfg.I18nLibrary)
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	s := &Session{
		cfg:       cfg,
		root:      cfg.Root(),
		extractor: extract.NewExtractor(dialect),
		matcher:   extract.NewMatcher(cfg.IgnoreKeys, cfg.IgnorePaths),
		lock:      &exclusive.Lock{},
		rep:       opts.Reporter,
		log:       log.With().Str("component", "engine").Logger(),
	}
	if s.rep == nil {
		s.rep = LogReporter{Log: s.log}
	}

	localesDir := cfg.AbsLocalesDir()
	s.store = locale.NewStore(localesDir)
	s.cache = cache.Open(localesDir, cache.Options{
		Disabled: !cfg.CacheEnabled(),
		Logger:   &log,
	})

	tr := opts.Translator
	if tr == nil {
		tr = unavailableTranslator{}
	}
	delay := cfg.BatchDelay()
	if delay == 0 {
		delay = -1
	}
	s.batcher = translate.NewBatcher(tr, s.cache, translate.BatcherOptions{
		CharLimit:    cfg.BatchCharLimit,
		RequestDelay: delay,
		Logger:       &log,
	})

	s.coalescer = NewCoalescer(s.lock, s.processBurst, CoalescerOptions{
		Debounce:   cfg.Debounce.Std(),
		RetryDelay: opts.RetryDelay,
		Reporter:   s.rep,
		Logger:     &log,
	})
	return s, nil
}

// Submit queues a saved document for the next save-triggered pass.
func (s *Session) Submit(doc Document) *Task {
	return s.coalescer.Submit(doc)
}

// Coalescer returns the session's save-event queue.
func (s *Session) Coalescer() *Coalescer {
	return s.coalescer
}

// Lock returns the session's exclusive lock.
func (s *Session) Lock() *exclusive.Lock {
	return s.lock
}

// Cache returns the session's translation cache.
func (s *Session) Cache() *cache.Cache {
	return s.cache
}

// Store returns the locale file store.
func (s *Session) Store() *locale.Store {
	return s.store
}

// IsSyncing reports whether a baseline sync is waiting for or holding the
// lock.
func (s *Session) IsSyncing() bool {
	return s.syncing.Load()
}

// Close drains nothing new: it waits for a running pass, rejects queued
// tasks with ErrClosed and flushes the cache.
func (s *Session) Close() error {
	s.coalescer.Close()
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("flushing translation cache: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// checkWorkspace runs the structural checks shared by sync and clean.
func (s *Session) checkWorkspace() error {
	if s.root == "" {
		return ErrNoWorkspace
	}
	base := s.cfg.DefaultLanguage
	if !s.cfg.HasLanguage(base) {
		return fmt.Errorf("%w: %s", ErrBaselineNotConfigured, base)
	}
	if !s.store.Exists(base) {
		return fmt.Errorf("%w: %s", ErrBaselineMissing, s.store.Path(base))
	}
	return nil
}

// inWorkspace reports whether path lies inside the session root.
func (s *Session) inWorkspace(path string) bool {
	if s.root == "" {
		return false
	}
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignoredPath checks ignore_paths against the path as given and relative
// to the workspace.
func (s *Session) ignoredPath(path string) bool {
	if s.matcher.ShouldIgnorePath(path) {
		return true
	}
	if rel, err := filepath.Rel(s.root, path); err == nil {
		return s.matcher.ShouldIgnorePath(rel)
	}
	return false
}

func (s *Session) readDocument(doc Document) ([]byte, error) {
	if doc.Text != nil {
		return doc.Text, nil
	}
	return os.ReadFile(doc.Path)
}

func (s *Session) writeTable(lang string, t *locale.Table) error {
	return s.store.Write(lang, t, !s.cfg.SortKeys)
}

func (s *Session) flushCache() {
	if err := s.cache.Flush(); err != nil {
		s.log.Warn().Err(err).Msg("flushing translation cache")
	}
}
