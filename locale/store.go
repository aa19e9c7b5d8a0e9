package locale

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStorage marks failures reading or writing a locale file.
var ErrStorage = errors.New("locale storage")

// Store reads and writes the per-language files of one locales directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir (usually <workspace>/locales).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the locales directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a language code.
func (s *Store) Path(lang string) string {
	return filepath.Join(s.dir, lang+".json")
}

// Exists reports whether the language file is present.
func (s *Store) Exists(lang string) bool {
	_, err := os.Stat(s.Path(lang))
	return err == nil
}

// Read returns the table stored for lang. A missing file is an empty table.
func (s *Store) Read(lang string) (*Table, error) {
	path := s.Path(lang)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStorage, path, err)
	}
	return t, nil
}

// Write replaces the file for lang with t, creating the locales directory
// when needed. With preserveOrder false the keys are sorted.
func (s *Store) Write(lang string, t *Table, preserveOrder bool) error {
	path := s.Path(lang)
	data, err := t.Marshal(!preserveOrder)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrStorage, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: creating directory: %v", ErrStorage, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, path, err)
	}
	return nil
}

// Stats returns (total, translated, missing) counts of t measured against
// the baseline keys. A key counts as missing when IsMissing reports so.
func Stats(baseline, t *Table) (total, translated, missing int) {
	for _, k := range baseline.Keys() {
		total++
		v, ok := t.Get(k)
		if !ok || IsMissing(v) {
			missing++
			continue
		}
		translated++
	}
	return
}
