package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Document is a saved source file. Text, when non-nil, is used instead of
// reading Path from disk.
type Document struct {
	Path string
	Text []byte
}

// Task is the handle for one submitted document. It settles once, when
// the burst it was drained with finishes.
type Task struct {
	ID       string
	Document Document
	Created  time.Time

	done chan struct{}
	once sync.Once
	err  error
}

func newTask(doc Document) *Task {
	now := time.Now()
	return &Task{
		ID:       fmt.Sprintf("%s@%d", doc.Path, now.UnixNano()),
		Document: doc,
		Created:  now,
		done:     make(chan struct{}),
	}
}

// settle resolves the task; later calls are ignored.
func (t *Task) settle(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed when the task has settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the burst's error. It is nil until Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
