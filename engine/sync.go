package engine

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/minios-linux/localesync/locale"
)

// SyncResult summarizes a baseline sync.
type SyncResult struct {
	// Written is the number of translated entries stored.
	Written int
	// PerLanguage maps a target language to its written entries.
	PerLanguage map[string]int
	// NoOp is set when nothing was missing.
	NoOp bool
}

// SyncFromBaseline fills every non-baseline language with translations of
// the baseline entries it lacks. It waits for the exclusive lock, so a
// running save-triggered pass finishes first. Storage failures of one
// language do not stop the others; they are returned together.
func (s *Session) SyncFromBaseline(ctx context.Context, rep Reporter) (*SyncResult, error) {
	if rep == nil {
		rep = NopReporter{}
	}
	if err := s.checkWorkspace(); err != nil {
		rep.Fail(err)
		return nil, err
	}

	s.syncing.Store(true)
	defer s.syncing.Store(false)

	if s.lock.IsLocked() {
		rep.Status("waiting for a running translation to finish")
	}

	var res *SyncResult
	err := s.lock.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.syncLocked(ctx, rep)
		return err
	})
	if err != nil {
		rep.Fail(err)
		return res, err
	}
	if res.NoOp {
		rep.Done("nothing to update")
	} else {
		rep.Done(fmt.Sprintf("synced %d translation(s)", res.Written))
	}
	return res, nil
}

type syncJob struct {
	lang    string
	table   *locale.Table
	missing []string
}

func (s *Session) syncLocked(ctx context.Context, rep Reporter) (*SyncResult, error) {
	res := &SyncResult{PerLanguage: make(map[string]int)}

	base := s.cfg.DefaultLanguage
	baseline, err := s.store.Read(base)
	if err != nil {
		return res, err
	}
	keys := s.matcher.FilterKeys(baseline.Keys())
	if len(keys) == 0 {
		res.NoOp = true
		return res, nil
	}

	var (
		result error
		jobs   []syncJob
		total  int
	)
	for _, lang := range s.cfg.TargetLanguages() {
		table, err := s.store.Read(lang)
		if err != nil {
			s.log.Error().Err(err).Str("language", lang).Msg("reading locale file")
			result = multierror.Append(result, err)
			continue
		}
		missing := locale.MissingKeys(table, keys)
		if len(missing) == 0 {
			continue
		}
		jobs = append(jobs, syncJob{lang: lang, table: table, missing: missing})
		total += len(missing)
	}
	if total == 0 {
		res.NoOp = result == nil
		return res, result
	}

	s.log.Info().Int("entries", total).Int("languages", len(jobs)).Msg("syncing from baseline")
	progress := percent{total: total}
	for _, job := range jobs {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		texts := make([]string, len(job.missing))
		for i, k := range job.missing {
			v, _ := baseline.Get(k)
			if v == "" {
				v = k
			}
			texts[i] = v
		}

		rep.Status(fmt.Sprintf("translating %d entries into %s", len(job.missing), job.lang))
		translated, err := s.batcher.TranslateMany(ctx, job.missing, texts, base, job.lang, func(n int) {
			if inc := progress.add(n); inc > 0 {
				rep.Progress(job.lang, inc)
			}
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("translating %s: %w", job.lang, err))
			continue
		}
		if err := s.writeTable(job.lang, locale.Merge(job.table, translated, job.missing...)); err != nil {
			s.log.Error().Err(err).Str("language", job.lang).Msg("writing locale file")
			result = multierror.Append(result, err)
			continue
		}
		res.PerLanguage[job.lang] = len(translated)
		res.Written += len(translated)
	}
	s.flushCache()
	return res, result
}
