package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/minios-linux/localesync/extract"
)

// CleanResult summarizes an unused-key cleanup.
type CleanResult struct {
	Scanned int
	Unused  []string
	// Removed counts deleted entries over all locale files, Files the
	// files that were rewritten.
	Removed   int
	Files     int
	Cancelled bool
}

// CleanUnused removes baseline keys that no source file in the workspace
// looks up. confirm, when set, sees the unused keys and may veto the
// removal by returning false.
func (s *Session) CleanUnused(ctx context.Context, rep Reporter, confirm func(keys []string) bool) (*CleanResult, error) {
	if rep == nil {
		rep = NopReporter{}
	}
	if err := s.checkWorkspace(); err != nil {
		rep.Fail(err)
		return nil, err
	}

	baseline, err := s.store.Read(s.cfg.DefaultLanguage)
	if err != nil {
		rep.Fail(err)
		return nil, err
	}
	keys := s.matcher.FilterKeys(baseline.Keys())

	sources, err := s.sourceFiles()
	if err != nil {
		rep.Fail(err)
		return nil, err
	}

	res := &CleanResult{Scanned: len(sources)}
	rep.Status(fmt.Sprintf("scanning %d source file(s) for %d key(s)", len(sources), len(keys)))
	progress := percent{total: len(sources)}
	res.Unused = s.extractor.Unused(keys, sources, func(path string) {
		if inc := progress.add(1); inc > 0 {
			rep.Progress(filepath.Base(path), inc)
		}
	})
	if len(res.Unused) == 0 {
		rep.Done("no unused keys")
		return res, nil
	}
	if confirm != nil && !confirm(res.Unused) {
		res.Cancelled = true
		rep.Done("cleanup cancelled")
		return res, nil
	}

	err = s.lock.Run(ctx, func(ctx context.Context) error {
		// A save pass may have run since the scan; only keys that are
		// still in the baseline and still unused are removed.
		baseline, err := s.store.Read(s.cfg.DefaultLanguage)
		if err != nil {
			return err
		}
		var candidates []string
		for _, k := range res.Unused {
			if baseline.Has(k) {
				candidates = append(candidates, k)
			}
		}
		sources, err := s.sourceFiles()
		if err != nil {
			return err
		}
		res.Unused = s.extractor.Unused(candidates, sources, nil)
		if len(res.Unused) == 0 {
			return nil
		}

		var result error
		for _, lang := range s.cfg.Languages {
			if !s.store.Exists(lang) {
				continue
			}
			table, err := s.store.Read(lang)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			removed := 0
			for _, k := range res.Unused {
				if table.Delete(k) {
					removed++
				}
			}
			if removed == 0 {
				continue
			}
			if err := s.writeTable(lang, table); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			s.log.Info().Str("language", lang).Int("removed", removed).Msg("removed unused keys")
			res.Removed += removed
			res.Files++
		}
		return result
	})
	if err != nil {
		rep.Fail(err)
		return res, err
	}
	if res.Removed == 0 {
		rep.Done("no unused keys")
		return res, nil
	}
	rep.Done(fmt.Sprintf("removed %d unused key(s) from %d locale file(s)", len(res.Unused), res.Files))
	return res, nil
}

// sourceFiles lists the workspace sources outside the locales directory
// and ignore_paths.
func (s *Session) sourceFiles() ([]string, error) {
	files, err := extract.FindSources([]string{s.root}, s.store.Dir())
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, f := range files {
		if !s.ignoredPath(f) {
			sources = append(sources, f)
		}
	}
	return sources, nil
}
