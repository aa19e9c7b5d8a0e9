package engine

import (
	"context"
	"errors"

	"github.com/minios-linux/localesync/locale"
)

// LanguageStatus is the completeness of one locale file against the
// baseline.
type LanguageStatus struct {
	Language   string
	Baseline   bool
	Exists     bool
	Total      int
	Translated int
	Missing    int
}

// Percent returns the translated share, 0 to 100.
func (l LanguageStatus) Percent() int {
	if l.Total == 0 {
		return 100
	}
	return l.Translated * 100 / l.Total
}

// Status is a snapshot of a session.
type Status struct {
	Languages    []LanguageStatus
	Unconfigured []string
	CacheEntries int
	CachePath    string
	CacheEnabled bool
	Locked       bool
	Waiting      int
	Queued       int
	State        State
	Syncing      bool
}

// Status reads every configured locale file and reports its completeness.
func (s *Session) Status() (*Status, error) {
	if err := s.checkWorkspace(); err != nil {
		return nil, err
	}
	baseline, err := s.store.Read(s.cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	for _, k := range baseline.Keys() {
		if s.matcher.ShouldIgnoreKey(k) {
			baseline.Delete(k)
		}
	}

	st := &Status{
		Unconfigured: s.cfg.UnconfiguredLanguages(),
		CacheEntries: s.cache.Len(),
		CachePath:    s.cache.Path(),
		CacheEnabled: s.cache.Enabled(),
		Locked:       s.lock.IsLocked(),
		Waiting:      s.lock.Waiting(),
		Queued:       s.coalescer.Queued(),
		State:        s.coalescer.State(),
		Syncing:      s.IsSyncing(),
	}
	for _, lang := range s.cfg.Languages {
		ls := LanguageStatus{
			Language: lang,
			Baseline: lang == s.cfg.DefaultLanguage,
			Exists:   s.store.Exists(lang),
		}
		table, err := s.store.Read(lang)
		if err != nil {
			return nil, err
		}
		ls.Total, ls.Translated, ls.Missing = locale.Stats(baseline, table)
		st.Languages = append(st.Languages, ls)
	}
	return st, nil
}

// ErrNoTranslator is returned by passes that need a remote call when the
// session was built without a Translator.
var ErrNoTranslator = errors.New("no translation provider configured")

type unavailableTranslator struct{}

func (unavailableTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", ErrNoTranslator
}
