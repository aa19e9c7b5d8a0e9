package engine

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/minios-linux/localesync/locale"
)

// processBurst is the save-triggered pass. It runs under the exclusive
// lock: new keys found in docs are added to the baseline file with the key
// as value, then translated into every other configured language.
func (s *Session) processBurst(ctx context.Context, docs []Document) error {
	if !s.cfg.IsEnabled() {
		s.log.Debug().Int("documents", len(docs)).Msg("extraction disabled, skipping burst")
		return nil
	}
	base := s.cfg.DefaultLanguage
	if !s.cfg.HasLanguage(base) {
		err := fmt.Errorf("%w: %s", ErrBaselineNotConfigured, base)
		s.rep.Fail(err)
		return err
	}

	keys := s.collectKeys(docs)
	if len(keys) == 0 {
		return nil
	}

	baseline, err := s.store.Read(base)
	if err != nil {
		return err
	}
	var added []string
	for _, k := range keys {
		if !baseline.Has(k) {
			added = append(added, k)
		}
	}
	if len(added) == 0 {
		s.log.Debug().Int("keys", len(keys)).Msg("no new keys")
		return nil
	}

	s.log.Info().Int("keys", len(added)).Str("language", base).Msg("adding new keys to baseline")
	for _, k := range added {
		baseline.Set(k, k)
	}
	if err := s.writeTable(base, baseline); err != nil {
		return err
	}

	targets := s.cfg.TargetLanguages()
	progress := percent{total: len(added) * len(targets)}
	var result error
	for _, lang := range targets {
		if err := s.fillLanguage(ctx, lang, added, &progress); err != nil {
			s.log.Error().Err(err).Str("language", lang).Msg("updating locale file")
			result = multierror.Append(result, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	s.flushCache()

	if result != nil {
		return result
	}
	s.rep.Done(fmt.Sprintf("added %d key(s) to %d language(s)", len(added), len(targets)+1))
	return nil
}

// fillLanguage translates the keys of added that lang lacks, using the
// key itself as source text.
func (s *Session) fillLanguage(ctx context.Context, lang string, added []string, progress *percent) error {
	table, err := s.store.Read(lang)
	if err != nil {
		return err
	}
	missing := locale.MissingKeys(table, added)
	// keys already translated count as done
	if inc := progress.add(len(added) - len(missing)); inc > 0 {
		s.rep.Progress(lang, inc)
	}
	if len(missing) == 0 {
		return nil
	}

	translated, err := s.batcher.TranslateMany(ctx, missing, missing, s.cfg.DefaultLanguage, lang, func(n int) {
		if inc := progress.add(n); inc > 0 {
			s.rep.Progress(fmt.Sprintf("translating %s", lang), inc)
		}
	})
	if err != nil {
		return fmt.Errorf("translating %s: %w", lang, err)
	}
	return s.writeTable(lang, locale.Merge(table, translated, missing...))
}

// collectKeys extracts keys from docs, dropping documents outside the
// workspace or under an ignored path and keys matching ignore_keys. The
// result is deduplicated in first-seen order.
func (s *Session) collectKeys(docs []Document) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, doc := range docs {
		if !s.inWorkspace(doc.Path) {
			s.log.Debug().Str("path", doc.Path).Msg("document outside workspace")
			continue
		}
		if s.ignoredPath(doc.Path) {
			s.log.Debug().Str("path", doc.Path).Msg("ignored path")
			continue
		}
		text, err := s.readDocument(doc)
		if err != nil {
			s.log.Warn().Err(err).Str("path", doc.Path).Msg("reading document")
			continue
		}
		for _, k := range s.matcher.FilterKeys(s.extractor.Keys(string(text))) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
