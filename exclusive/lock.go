// Package exclusive implements the process-wide lock that serializes
// translation passes. Save-triggered passes and explicit baseline syncs
// both run their critical section through the same Lock, so locale files
// and the translation cache only ever have one writer.
//
// Waiters are admitted strictly in arrival order. The lock is not
// reentrant: calling Acquire from inside Run deadlocks.
package exclusive

import (
	"container/list"
	"context"
	"sync"
)

// Lock is a FIFO mutex whose Acquire honours context cancellation.
// The zero value is an unlocked Lock.
type Lock struct {
	mu      sync.Mutex
	held    bool
	waiters list.List // of chan struct{}
}

// Acquire blocks until the caller is the sole holder of the lock.
// If ctx ends first the caller leaves the queue and ctx.Err() is returned.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := l.waiters.PushBack(ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		select {
		case <-ready:
			// Ownership was handed over while we were giving up.
			l.mu.Unlock()
			l.Release()
		default:
			l.waiters.Remove(elem)
			l.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Release passes the lock to the oldest waiter, or marks it free when
// nobody is waiting. Releasing an unheld lock does nothing.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}
	front := l.waiters.Front()
	if front == nil {
		l.held = false
		return
	}
	l.waiters.Remove(front)
	close(front.Value.(chan struct{}))
}

// Run acquires the lock, calls fn and releases the lock however fn exits.
// A panic in fn is re-raised after the lock is released.
func (l *Lock) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// IsLocked reports whether some caller currently holds the lock.
// The answer may be stale by the time it is used; only use it for status
// messages, never to decide whether to enter a critical section.
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Waiting returns the number of callers queued behind the holder.
func (l *Lock) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}
