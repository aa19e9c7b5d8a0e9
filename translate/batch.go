package translate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	// DefaultCharLimit bounds the size of one numbered block.
	DefaultCharLimit = 1800
	// DefaultRequestDelay separates consecutive remote batches.
	DefaultRequestDelay = time.Second
)

// Cache is the subset of the translation cache the batcher uses.
type Cache interface {
	Get(source, target, text string) (string, bool)
	Set(source, target, text, translation string)
}

type nopCache struct{}

func (nopCache) Get(string, string, string) (string, bool) { return "", false }
func (nopCache) Set(string, string, string, string)         {}

// BatcherOptions controls batching.
type BatcherOptions struct {
	// CharLimit overrides DefaultCharLimit.
	CharLimit int
	// RequestDelay overrides DefaultRequestDelay. A negative value
	// disables the delay.
	RequestDelay time.Duration
	Logger       *zerolog.Logger
}

// Batcher translates many texts at once with as few remote calls as the
// character budget allows.
type Batcher struct {
	tr    Translator
	cache Cache
	conv  converters
	limit int
	delay time.Duration
	log   zerolog.Logger
}

// NewBatcher returns a batcher using tr for remote calls. cache may be nil.
func NewBatcher(tr Translator, cache Cache, opts BatcherOptions) *Batcher {
	b := &Batcher{
		tr:    tr,
		cache: cache,
		limit: opts.CharLimit,
		delay: opts.RequestDelay,
		log:   zerolog.Nop(),
	}
	if b.cache == nil {
		b.cache = nopCache{}
	}
	if b.limit <= 0 {
		b.limit = DefaultCharLimit
	}
	if b.delay == 0 {
		b.delay = DefaultRequestDelay
	}
	if opts.Logger != nil {
		b.log = opts.Logger.With().Str("component", "batch").Logger()
	}
	return b
}

type item struct {
	key  string
	text string
}

// TranslateMany translates texts[i] (stored under keys[i]) from source to
// target and returns key → translation for every key. onProgress, when
// set, is called with the number of items finished at each step.
//
// Individual failures never surface: a text that cannot be translated
// maps to itself. The error is non-nil only for mismatched input lengths
// (ErrValidation) or when ctx ends between batches.
func (b *Batcher) TranslateMany(ctx context.Context, keys, texts []string, source, target string, onProgress func(int)) (map[string]string, error) {
	if len(keys) != len(texts) {
		return nil, fmt.Errorf("%w: %d keys but %d texts", ErrValidation, len(keys), len(texts))
	}
	progress := func(n int) {
		if onProgress != nil && n > 0 {
			onProgress(n)
		}
	}
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	if conversion := ScriptConversion(source, target); conversion != "" {
		for i, k := range keys {
			out, err := b.conv.convert(conversion, texts[i])
			if err != nil {
				b.log.Warn().Err(err).Str("conversion", conversion).Msg("script conversion failed, keeping source text")
				out = texts[i]
			}
			result[k] = out
		}
		progress(len(keys))
		return result, nil
	}

	var pending []item
	for i, k := range keys {
		if v, ok := b.cache.Get(source, target, texts[i]); ok {
			result[k] = v
			progress(1)
			continue
		}
		pending = append(pending, item{key: k, text: texts[i]})
	}

	batches := splitBatches(pending, b.limit)
	for i, batch := range batches {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(b.delay):
			}
		}
		b.log.Debug().Str("target", target).Int("batch", i+1).Int("batches", len(batches)).Int("items", len(batch)).Msg("translating batch")
		b.translateBatch(ctx, batch, source, target, result, progress)
	}
	return result, nil
}

// translateBatch fills result for every item of batch.
func (b *Batcher) translateBatch(ctx context.Context, batch []item, source, target string, result map[string]string, progress func(int)) {
	if len(batch) == 1 && strings.Contains(batch[0].text, "\n") {
		// Multi-line text cannot be numbered line by line.
		b.translateEach(ctx, batch, source, target, result)
		progress(1)
		return
	}

	block := numberedBlock(batch)
	resp, err := b.tr.Translate(ctx, block, source, target)
	var lines []string
	if err == nil {
		lines, err = validateBatch(block, resp, batch)
	}
	if err == nil {
		for i, it := range batch {
			b.accept(it, lines[i], source, target, result)
			progress(1)
		}
		return
	}

	b.log.Debug().Err(err).Int("items", len(batch)).Msg("batch rejected, translating items one by one")
	b.translateEach(ctx, batch, source, target, result)
	progress(len(batch))
}

// translateEach translates the items of batch one call at a time. A text
// that fails keeps its source value.
func (b *Batcher) translateEach(ctx context.Context, batch []item, source, target string, result map[string]string) {
	for _, it := range batch {
		out, err := b.tr.Translate(ctx, it.text, source, target)
		if err == nil {
			out, err = acceptLine(out, it.text)
		}
		if err != nil {
			b.log.Debug().Err(err).Str("key", it.key).Msg("keeping source text")
			result[it.key] = it.text
			continue
		}
		b.accept(it, out, source, target, result)
	}
}

func (b *Batcher) accept(it item, translation, source, target string, result map[string]string) {
	result[it.key] = translation
	if translation != it.text {
		b.cache.Set(source, target, it.text, translation)
	}
}

// validateBatch returns the cleaned line for each item of batch, or
// ErrMismatch when the response cannot be trusted as a whole. The response
// must hold exactly one line per item, numbered in request order.
func validateBatch(block, resp string, batch []item) ([]string, error) {
	if strings.TrimSpace(resp) == strings.TrimSpace(block) {
		return nil, fmt.Errorf("%w: response echoes the request", ErrMismatch)
	}
	lines := responseLines(resp)
	if len(lines) != len(batch) {
		return nil, fmt.Errorf("%w: got %d lines, want %d", ErrMismatch, len(lines), len(batch))
	}
	out := make([]string, len(batch))
	for i, it := range batch {
		if n := lineNumber(lines[i]); n != i+1 {
			return nil, fmt.Errorf("%w: line %d does not start with %q", ErrMismatch, i+1, fmt.Sprintf("%d.", i+1))
		}
		s, err := acceptLine(lines[i], it.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = s
	}
	return out, nil
}

func numberedBlock(batch []item) string {
	var sb strings.Builder
	for i, it := range batch {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, it.text)
	}
	return sb.String()
}

// splitBatches groups items so the numbered block of each group stays
// within limit characters. An item larger than limit, or spanning several
// lines, gets a group of its own.
func splitBatches(items []item, limit int) [][]item {
	var batches [][]item
	var cur []item
	size := 0
	for _, it := range items {
		cost := lineCost(len(cur)+1, it.text)
		multiline := strings.Contains(it.text, "\n")
		if len(cur) > 0 && (multiline || size+cost > limit) {
			batches = append(batches, cur)
			cur, size = nil, 0
			cost = lineCost(1, it.text)
		}
		cur = append(cur, it)
		size += cost
		if multiline {
			batches = append(batches, cur)
			cur, size = nil, 0
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func lineCost(n int, text string) int {
	return utf8.RuneCountInString(fmt.Sprintf("%d. %s", n, text)) + 1
}
