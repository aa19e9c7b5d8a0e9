package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SourceExtensions lists the file extensions scanned for key lookups.
var SourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// skipDirs contains directory names to skip during source file scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".next":        true,
	".cache":       true,
}

// IsSource reports whether path has a scanned extension.
func IsSource(path string) bool {
	return SourceExtensions[filepath.Ext(path)]
}

// SkipDir reports whether a directory with this base name is never
// scanned.
func SkipDir(name string) bool {
	return skipDirs[name]
}

// FindSources recursively finds all JavaScript and TypeScript files in
// dirs. Common non-source directories are skipped, as are the
// directories listed in exclude (compared as absolute paths).
func FindSources(dirs []string, exclude ...string) ([]string, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	var files []string
	seen := make(map[string]bool)

	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if info.IsDir() {
				if path != dir && skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				if abs, err := filepath.Abs(path); err == nil && excluded[abs] {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSource(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
