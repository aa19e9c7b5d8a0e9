// Package cache implements the persistent translation cache: a JSON file
// in the locales directory mapping a SHA-256 digest of
// (source language, target language, source text) to the last accepted
// translation. A cache hit lets the engine skip the remote call entirely.
//
// Writes are throttled: the file is rewritten once Threshold entries are
// dirty, or Delay after the first unflushed write, whichever comes first.
// Entries are never evicted.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// FileName is the cache file name inside the locales directory.
const FileName = ".localesync-cache.json"

const (
	// DefaultThreshold is the dirty-entry count that forces a flush.
	DefaultThreshold = 50
	// DefaultDelay is how long an unflushed write may wait for company.
	DefaultDelay = 500 * time.Millisecond
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Options controls cache behaviour.
type Options struct {
	// Disabled turns the cache into a no-op: Get always misses, Set and
	// Flush do nothing, and no file is read or written.
	Disabled bool
	// Threshold overrides DefaultThreshold.
	Threshold int
	// Delay overrides DefaultDelay.
	Delay time.Duration
	// Logger receives flush failures from the background timer.
	Logger *zerolog.Logger
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
	path    string
	dirty   int
	timer   *time.Timer

	enabled   bool
	threshold int
	delay     time.Duration
	log       zerolog.Logger
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Open loads the cache stored in dir. A missing file yields an empty cache.
// An unreadable or corrupt file is logged and also yields an empty cache;
// the next flush overwrites it.
func Open(dir string, opts Options) *Cache {
	c := &Cache{
		entries:   make(map[string]string),
		path:      filepath.Join(dir, FileName),
		enabled:   !opts.Disabled,
		threshold: opts.Threshold,
		delay:     opts.Delay,
		log:       zerolog.Nop(),
	}
	if c.threshold <= 0 {
		c.threshold = DefaultThreshold
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("component", "cache").Logger()
	}
	if !c.enabled {
		return c
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", c.path).Msg("cannot read translation cache, starting empty")
		}
		return c
	}
	if len(data) == 0 {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.log.Warn().Err(err).Str("path", c.path).Msg("corrupt translation cache, starting empty")
		c.entries = make(map[string]string)
	}
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c
}

// Key returns the hex SHA-256 digest identifying a cache entry. Language
// codes never contain a newline, so the separator keeps the three parts
// apart.
func Key(source, target, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{'\n'})
	h.Write([]byte(target))
	h.Write([]byte{'\n'})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ---------------------------------------------------------------------------
// Lookup and update
// ---------------------------------------------------------------------------

// Get returns the cached translation of text from source to target.
func (c *Cache) Get(source, target, text string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[Key(source, target, text)]
	return v, ok
}

// Set records a translation and schedules persistence.
func (c *Cache) Set(source, target, text, translation string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(source, target, text)] = translation
	c.dirty++
	if c.dirty >= c.threshold {
		if err := c.flushLocked(); err != nil {
			c.log.Error().Err(err).Msg("flushing translation cache")
		}
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.delay, c.flushFromTimer)
	}
}

func (c *Cache) flushFromTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = nil
	if c.dirty == 0 {
		return
	}
	if err := c.flushLocked(); err != nil {
		c.log.Error().Err(err).Msg("flushing translation cache")
	}
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Flush writes the cache to disk if anything changed since the last write.
func (c *Cache) Flush() error {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty == 0 {
		return nil
	}
	return c.flushLocked()
}

// flushLocked writes all entries via a temp file and resets the dirty
// state. The dirty counter is cleared even when the write fails so a
// broken disk does not turn every Set into a write attempt.
func (c *Cache) flushLocked() error {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.dirty = 0

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing %s: %w", c.path, err)
	}
	c.log.Debug().Int("entries", len(c.entries)).Str("path", c.path).Msg("translation cache flushed")
	return nil
}

// Close stops the flush timer and persists pending entries.
func (c *Cache) Close() error {
	return c.Flush()
}

// Clear drops every entry and persists the empty cache.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return c.flushLocked()
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dirty returns the number of writes not yet persisted.
func (c *Cache) Dirty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}
