// Package watch turns file saves under a project root into engine
// submissions.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/minios-linux/localesync/engine"
	"github.com/minios-linux/localesync/extract"
	"github.com/rs/zerolog"
)

// Submitter receives saved source files.
type Submitter interface {
	Submit(doc engine.Document) *engine.Task
}

// Options configures a Watcher.
type Options struct {
	// Exclude lists directories never watched, such as the locales dir.
	Exclude []string
	Logger  *zerolog.Logger
}

// Watcher watches a directory tree recursively and submits every written
// or created source file.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	sub      Submitter
	excluded map[string]bool
	log      zerolog.Logger
}

// New starts watching root and every directory below it that is not
// skipped.
func New(root string, sub Submitter, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		fs:       fw,
		sub:      sub,
		excluded: make(map[string]bool),
		log:      zerolog.Nop(),
	}
	if opts.Logger != nil {
		w.log = opts.Logger.With().Str("component", "watch").Logger()
	}
	for _, e := range opts.Exclude {
		if abs, err := filepath.Abs(e); err == nil {
			w.excluded[abs] = true
		}
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree adds dir and its subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.skip(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) skip(dir string) bool {
	if extract.SkipDir(filepath.Base(dir)) {
		return true
	}
	abs, err := filepath.Abs(dir)
	return err == nil && w.excluded[abs]
}

// Run dispatches events until ctx ends, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	w.log.Info().Str("root", w.root).Msg("watching for saved files")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && !w.skip(ev.Name) {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn().Err(err).Msg("watching new directory")
			}
		}
		return
	}
	if !extract.IsSource(ev.Name) {
		return
	}
	task := w.sub.Submit(engine.Document{Path: ev.Name})
	w.log.Debug().Str("path", ev.Name).Str("task", task.ID).Msg("save queued")
}
