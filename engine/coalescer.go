package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minios-linux/localesync/exclusive"
	"github.com/rs/zerolog"
)

const (
	// DefaultDebounce is the quiet period before a burst is drained.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultRetryDelay reschedules work that arrived during a drain.
	DefaultRetryDelay = 100 * time.Millisecond
)

// State is the coalescer's observable state.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}

// ProcessFunc handles the documents of one drained burst. It runs while
// the exclusive lock is held.
type ProcessFunc func(ctx context.Context, docs []Document) error

// CoalescerOptions tunes a Coalescer.
type CoalescerOptions struct {
	Debounce   time.Duration
	RetryDelay time.Duration
	Reporter   Reporter
	Logger     *zerolog.Logger
}

// Coalescer merges save events arriving in quick succession into a single
// pass. Every Submit restarts the debounce timer; when it fires, all
// pending tasks are drained together under the exclusive lock and settled
// with the pass result. Tasks that arrive during a drain wait for the next
// one.
type Coalescer struct {
	mu       sync.Mutex
	pending  []*Task
	timer    *time.Timer
	draining bool
	closed   bool
	inflight sync.WaitGroup

	lock     *exclusive.Lock
	process  ProcessFunc
	debounce time.Duration
	retry    time.Duration
	rep      Reporter
	log      zerolog.Logger
}

// NewCoalescer returns a coalescer running process under lock.
func NewCoalescer(lock *exclusive.Lock, process ProcessFunc, opts CoalescerOptions) *Coalescer {
	c := &Coalescer{
		lock:     lock,
		process:  process,
		debounce: opts.Debounce,
		retry:    opts.RetryDelay,
		rep:      opts.Reporter,
		log:      zerolog.Nop(),
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	if c.retry <= 0 {
		c.retry = DefaultRetryDelay
	}
	if c.rep == nil {
		c.rep = NopReporter{}
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("component", "coalescer").Logger()
	}
	return c
}

// Submit queues doc and restarts the debounce timer. After Close the
// returned task is already settled with ErrClosed.
func (c *Coalescer) Submit(doc Document) *Task {
	t := newTask(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		t.settle(ErrClosed)
		return t
	}
	c.pending = append(c.pending, t)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.drain)
	c.log.Debug().Str("task", t.ID).Int("queued", len(c.pending)).Msg("document submitted")
	return t
}

// drain runs one burst. A drain already in progress picks the new work up
// through its reschedule.
func (c *Coalescer) drain() {
	c.mu.Lock()
	if c.closed || c.draining || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.draining = true
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	if c.lock.IsLocked() {
		c.rep.Status(fmt.Sprintf("%d saved file(s) queued behind a running translation", len(batch)))
	}

	docs := make([]Document, len(batch))
	for i, t := range batch {
		docs[i] = t.Document
	}
	err := c.run(docs)
	if err != nil {
		c.log.Error().Err(err).Int("tasks", len(batch)).Msg("burst failed")
	}

	c.mu.Lock()
	c.draining = false
	if len(c.pending) > 0 && !c.closed {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.retry, c.drain)
	}
	c.mu.Unlock()

	for _, t := range batch {
		t.settle(err)
	}
}

// run executes process under the lock. A panic is turned into an error
// so no task is left unsettled.
func (c *Coalescer) run(docs []Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translation pass panicked: %v", r)
		}
	}()
	return c.lock.Run(context.Background(), func(ctx context.Context) error {
		return c.process(ctx, docs)
	})
}

// Queued returns the number of tasks waiting for the next drain.
func (c *Coalescer) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// State reports what the coalescer is doing.
func (c *Coalescer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.draining:
		return StateDraining
	case len(c.pending) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// Close stops the timer, waits for an in-flight drain and settles the
// tasks still pending with ErrClosed.
func (c *Coalescer) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	rest := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.inflight.Wait()
	for _, t := range rest {
		t.settle(ErrClosed)
	}
}
