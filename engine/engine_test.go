package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/localesync/config"
	"github.com/minios-linux/localesync/exclusive"
	"github.com/minios-linux/localesync/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var linePrefix = regexp.MustCompile(`^\d+\. `)

// dictTranslator answers numbered blocks line by line from dict; unknown
// lines are echoed.
type dictTranslator struct {
	mu    sync.Mutex
	dict  map[string]string
	calls int
	texts []string
}

func (d *dictTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	d.mu.Lock()
	d.calls++
	d.texts = append(d.texts, text)
	d.mu.Unlock()
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		prefix := linePrefix.FindString(l)
		body := l[len(prefix):]
		if v, ok := d.dict[body]; ok {
			body = v
		}
		lines[i] = prefix + body
	}
	return strings.Join(lines, "\n"), nil
}

func (d *dictTranslator) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// recorder is a Reporter that keeps everything it was told.
type recorder struct {
	mu       sync.Mutex
	progress int
	statuses []string
	done     []string
	fails    []error
}

func (r *recorder) Progress(_ string, inc int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress += inc
}

func (r *recorder) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *recorder) Done(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, msg)
}

func (r *recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fails = append(r.fails, err)
}

func (r *recorder) hasStatus(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.SetRoot(t.TempDir())
	cfg.Languages = []string{"zh-CN", "en-US"}
	cfg.RequestDelay = new(config.Duration)
	cfg.Debounce = config.Duration(20 * time.Millisecond)
	return cfg
}

func writeLocale(t *testing.T, cfg *config.Config, lang string, pairs ...string) {
	t.Helper()
	store := locale.NewStore(cfg.AbsLocalesDir())
	require.NoError(t, store.Write(lang, locale.TableFrom(pairs...), true))
}

func readLocale(t *testing.T, cfg *config.Config, lang string) *locale.Table {
	t.Helper()
	table, err := locale.NewStore(cfg.AbsLocalesDir()).Read(lang)
	require.NoError(t, err)
	return table
}

func newSession(t *testing.T, cfg *config.Config, tr *dictTranslator, rep Reporter) *Session {
	t.Helper()
	s, err := New(Options{Config: cfg, Translator: tr, Reporter: rep, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Coalescer
// ---------------------------------------------------------------------------

func TestCoalescer_DebounceMergesBurst(t *testing.T) {
	var (
		calls atomic.Int32
		mu    sync.Mutex
		got   []string
	)
	c := NewCoalescer(&exclusive.Lock{}, func(_ context.Context, docs []Document) error {
		calls.Add(1)
		mu.Lock()
		defer mu.Unlock()
		for _, d := range docs {
			got = append(got, d.Path)
		}
		return nil
	}, CoalescerOptions{Debounce: 30 * time.Millisecond})
	defer c.Close()

	var tasks []*Task
	for _, p := range []string{"a.ts", "b.ts", "c.ts"} {
		tasks = append(tasks, c.Submit(Document{Path: p}))
	}
	assert.Equal(t, StateAccumulating, c.State())
	assert.Equal(t, 3, c.Queued())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, task := range tasks {
		require.NoError(t, task.Wait(ctx))
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, got)
	assert.Equal(t, StateIdle, c.State())
}

func TestCoalescer_ErrorRejectsWholeBurst(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoalescer(&exclusive.Lock{}, func(context.Context, []Document) error {
		return boom
	}, CoalescerOptions{Debounce: 10 * time.Millisecond})
	defer c.Close()

	t1 := c.Submit(Document{Path: "a.ts"})
	t2 := c.Submit(Document{Path: "b.ts"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, t1.Wait(ctx), boom)
	assert.ErrorIs(t, t2.Wait(ctx), boom)
}

func TestCoalescer_PanicSettlesTasks(t *testing.T) {
	c := NewCoalescer(&exclusive.Lock{}, func(context.Context, []Document) error {
		panic("bad input")
	}, CoalescerOptions{Debounce: 10 * time.Millisecond})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Submit(Document{Path: "a.ts"}).Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestCoalescer_SubmitDuringDrainRunsAgain(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var calls atomic.Int32
	c := NewCoalescer(&exclusive.Lock{}, func(context.Context, []Document) error {
		if calls.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
		return nil
	}, CoalescerOptions{Debounce: 10 * time.Millisecond, RetryDelay: 10 * time.Millisecond})
	defer c.Close()

	first := c.Submit(Document{Path: "a.ts"})
	<-started
	assert.Equal(t, StateDraining, c.State())
	second := c.Submit(Document{Path: "b.ts"})
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, first.Wait(ctx))
	require.NoError(t, second.Wait(ctx))
	assert.EqualValues(t, 2, calls.Load())
}

func TestCoalescer_QueuedBehindLock(t *testing.T) {
	lock := &exclusive.Lock{}
	rep := &recorder{}
	c := NewCoalescer(lock, func(context.Context, []Document) error { return nil },
		CoalescerOptions{Debounce: 10 * time.Millisecond, Reporter: rep})
	defer c.Close()

	require.NoError(t, lock.Acquire(context.Background()))
	task := c.Submit(Document{Path: "a.ts"})
	require.Eventually(t, func() bool { return lock.Waiting() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, rep.hasStatus("queued"))
	select {
	case <-task.Done():
		t.Fatal("task settled while the lock was held")
	default:
	}

	lock.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
}

func TestCoalescer_CloseRejectsPending(t *testing.T) {
	c := NewCoalescer(&exclusive.Lock{}, func(context.Context, []Document) error { return nil },
		CoalescerOptions{Debounce: time.Hour})

	task := c.Submit(Document{Path: "a.ts"})
	c.Close()
	assert.ErrorIs(t, task.Err(), ErrClosed)
	assert.ErrorIs(t, c.Submit(Document{Path: "b.ts"}).Err(), ErrClosed)
}

// ---------------------------------------------------------------------------
// Save-triggered pass
// ---------------------------------------------------------------------------

func TestSession_SaveAddsAndTranslatesKeys(t *testing.T) {
	cfg := testConfig(t)
	tr := &dictTranslator{dict: map[string]string{"你好": "Hello", "再见": "Goodbye"}}
	s := newSession(t, cfg, tr, nil)

	docs := []Document{
		{Path: filepath.Join(cfg.Root(), "src", "a.tsx"), Text: []byte(`intl.t('你好'); intl.t("再见")`)},
		{Path: filepath.Join(cfg.Root(), "src", "b.tsx"), Text: []byte(`intl.t('你好')`)},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var tasks []*Task
	for _, d := range docs {
		tasks = append(tasks, s.Submit(d))
	}
	for _, task := range tasks {
		require.NoError(t, task.Wait(ctx))
	}

	base := readLocale(t, cfg, "zh-CN")
	assert.Equal(t, []string{"你好", "再见"}, base.Keys())
	v, _ := base.Get("你好")
	assert.Equal(t, "你好", v)

	en := readLocale(t, cfg, "en-US")
	v, _ = en.Get("你好")
	assert.Equal(t, "Hello", v)
	v, _ = en.Get("再见")
	assert.Equal(t, "Goodbye", v)
	assert.Equal(t, 1, tr.callCount())
}

func TestSession_SaveSkipsOutsideAndIgnored(t *testing.T) {
	cfg := testConfig(t)
	cfg.IgnorePaths = []string{"src/vendor/*"}
	cfg.IgnoreKeys = []string{"debug.*"}
	tr := &dictTranslator{dict: map[string]string{"你好": "Hello"}}
	s := newSession(t, cfg, tr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tasks := []*Task{
		s.Submit(Document{Path: filepath.Join(t.TempDir(), "x.ts"), Text: []byte(`intl.t('outside')`)}),
		s.Submit(Document{Path: filepath.Join(cfg.Root(), "src", "vendor", "y.ts"), Text: []byte(`intl.t('vendored')`)}),
		s.Submit(Document{Path: filepath.Join(cfg.Root(), "src", "z.ts"), Text: []byte(`intl.t('debug.trace'); intl.t('你好')`)}),
	}
	for _, task := range tasks {
		require.NoError(t, task.Wait(ctx))
	}
	assert.Equal(t, []string{"你好"}, readLocale(t, cfg, "zh-CN").Keys())
}

func TestSession_SaveWithExtractionDisabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Enabled = &off
	tr := &dictTranslator{}
	s := newSession(t, cfg, tr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task := s.Submit(Document{Path: filepath.Join(cfg.Root(), "a.ts"), Text: []byte(`intl.t('你好')`)})
	require.NoError(t, task.Wait(ctx))
	assert.False(t, locale.NewStore(cfg.AbsLocalesDir()).Exists("zh-CN"))
	assert.Zero(t, tr.callCount())
}

func TestSession_SaveRejectsUnlistedBaseline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages = []string{"en-US", "fr-FR"}
	tr := &dictTranslator{dict: map[string]string{"你好": "Hello"}}
	rep := &recorder{}
	s := newSession(t, cfg, tr, rep)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task := s.Submit(Document{Path: filepath.Join(cfg.Root(), "src", "a.tsx"), Text: []byte(`intl.t('你好')`)})
	err := task.Wait(ctx)
	require.ErrorIs(t, err, ErrBaselineNotConfigured)

	assert.Zero(t, tr.callCount())
	store := locale.NewStore(cfg.AbsLocalesDir())
	assert.False(t, store.Exists("zh-CN"), "baseline must not be created")
	assert.False(t, store.Exists("en-US"))
	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.Len(t, rep.fails, 1)
	assert.ErrorIs(t, rep.fails[0], ErrBaselineNotConfigured)
}

// ---------------------------------------------------------------------------
// Baseline sync
// ---------------------------------------------------------------------------

func TestSync_StructuralErrors(t *testing.T) {
	t.Run("no workspace", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Languages = []string{"zh-CN", "en-US"}
		rep := &recorder{}
		s := newSession(t, cfg, &dictTranslator{}, nil)
		_, err := s.SyncFromBaseline(context.Background(), rep)
		assert.ErrorIs(t, err, ErrNoWorkspace)
		assert.Len(t, rep.fails, 1)
	})
	t.Run("baseline not configured", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Languages = []string{"en-US", "fr-FR"}
		s := newSession(t, cfg, &dictTranslator{}, nil)
		_, err := s.SyncFromBaseline(context.Background(), nil)
		assert.ErrorIs(t, err, ErrBaselineNotConfigured)
	})
	t.Run("baseline missing", func(t *testing.T) {
		cfg := testConfig(t)
		tr := &dictTranslator{}
		s := newSession(t, cfg, tr, nil)
		_, err := s.SyncFromBaseline(context.Background(), nil)
		assert.ErrorIs(t, err, ErrBaselineMissing)
		assert.Zero(t, tr.callCount())
	})
}

func TestSync_TranslatesGreeting(t *testing.T) {
	cfg := testConfig(t)
	writeLocale(t, cfg, "zh-CN", "你好", "你好")
	writeLocale(t, cfg, "en-US")
	tr := &dictTranslator{dict: map[string]string{"你好": "Hello"}}
	s := newSession(t, cfg, tr, nil)

	res, err := s.SyncFromBaseline(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, []string{"1. 你好"}, tr.texts)
	assert.Equal(t, map[string]string{"你好": "Hello"}, readLocale(t, cfg, "en-US").Map())
}

func TestSync_FillsMissingAndIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages = []string{"zh-CN", "en-US", "fr-FR"}
	writeLocale(t, cfg, "zh-CN", "greeting", "你好", "farewell", "再见", "empty.value", "")
	writeLocale(t, cfg, "en-US", "greeting", "Hi there", "farewell", `""`)
	tr := &dictTranslator{dict: map[string]string{
		"你好":          "Hello",
		"再见":          "Goodbye",
		"empty.value": "Empty value",
	}}
	s := newSession(t, cfg, tr, nil)

	rep := &recorder{}
	res, err := s.SyncFromBaseline(context.Background(), rep)
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, 2, res.PerLanguage["en-US"])
	assert.Equal(t, 3, res.PerLanguage["fr-FR"])
	assert.Equal(t, 5, res.Written)
	assert.Equal(t, 100, rep.progress)
	assert.False(t, s.IsSyncing())

	en := readLocale(t, cfg, "en-US")
	assert.Equal(t, []string{"greeting", "farewell", "empty.value"}, en.Keys())
	v, _ := en.Get("greeting")
	assert.Equal(t, "Hi there", v, "existing translations are kept")
	v, _ = en.Get("farewell")
	assert.Equal(t, "Goodbye", v)
	v, _ = en.Get("empty.value")
	assert.Equal(t, "Empty value", v, "empty baseline values translate the key")

	calls := tr.callCount()
	rep = &recorder{}
	res, err = s.SyncFromBaseline(context.Background(), rep)
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Equal(t, calls, tr.callCount(), "second sync must not call the provider")
	assert.Equal(t, []string{"nothing to update"}, rep.done)
}

func TestSync_WaitsForRunningPass(t *testing.T) {
	cfg := testConfig(t)
	writeLocale(t, cfg, "zh-CN", "你好", "你好")
	tr := &dictTranslator{dict: map[string]string{"你好": "Hello"}}
	s := newSession(t, cfg, tr, nil)

	require.NoError(t, s.Lock().Acquire(context.Background()))
	rep := &recorder{}
	done := make(chan error, 1)
	go func() {
		_, err := s.SyncFromBaseline(context.Background(), rep)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.Lock().Waiting() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsSyncing())
	assert.True(t, rep.hasStatus("waiting"))
	assert.Zero(t, tr.callCount())

	s.Lock().Release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not finish")
	}
	v, _ := readLocale(t, cfg, "en-US").Get("你好")
	assert.Equal(t, "Hello", v)
}

func TestSync_StorageErrorDoesNotStopOtherLanguages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages = []string{"zh-CN", "en-US", "fr-FR"}
	writeLocale(t, cfg, "zh-CN", "你好", "你好")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AbsLocalesDir(), "en-US.json"), []byte("{broken"), 0644))
	tr := &dictTranslator{dict: map[string]string{"你好": "Bonjour"}}
	s := newSession(t, cfg, tr, nil)

	res, err := s.SyncFromBaseline(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, locale.ErrStorage)
	assert.Equal(t, 1, res.PerLanguage["fr-FR"])
	v, _ := readLocale(t, cfg, "fr-FR").Get("你好")
	assert.Equal(t, "Bonjour", v)
}

// ---------------------------------------------------------------------------
// Cleanup and status
// ---------------------------------------------------------------------------

func TestCleanUnused(t *testing.T) {
	cfg := testConfig(t)
	writeLocale(t, cfg, "zh-CN", "used", "用过", "stale", "过期")
	writeLocale(t, cfg, "en-US", "used", "Used", "stale", "Stale")
	src := filepath.Join(cfg.Root(), "src", "app.tsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte(`export const A = () => intl.t('used')`), 0644))
	s := newSession(t, cfg, &dictTranslator{}, nil)

	res, err := s.CleanUnused(context.Background(), nil, func(keys []string) bool { return false })
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, []string{"stale"}, res.Unused)
	assert.True(t, readLocale(t, cfg, "en-US").Has("stale"))

	rep := &recorder{}
	res, err = s.CleanUnused(context.Background(), rep, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, []string{"removed 1 unused key(s) from 2 locale file(s)"}, rep.done)
	assert.Equal(t, []string{"used"}, readLocale(t, cfg, "zh-CN").Keys())
	assert.Equal(t, []string{"used"}, readLocale(t, cfg, "en-US").Keys())
}

func TestCleanUnused_KeepsKeysUsedAfterScan(t *testing.T) {
	cfg := testConfig(t)
	writeLocale(t, cfg, "zh-CN", "used", "用过", "stale", "过期", "old", "旧")
	writeLocale(t, cfg, "en-US", "used", "Used", "stale", "Stale", "old", "Old")
	src := filepath.Join(cfg.Root(), "src", "app.tsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte(`intl.t('used')`), 0644))
	s := newSession(t, cfg, &dictTranslator{}, nil)

	// a file saved between the scan and the removal starts using "stale"
	rep := &recorder{}
	res, err := s.CleanUnused(context.Background(), rep, func(keys []string) bool {
		assert.Equal(t, []string{"stale", "old"}, keys)
		later := filepath.Join(cfg.Root(), "src", "later.tsx")
		require.NoError(t, os.WriteFile(later, []byte(`intl.t('stale')`), 0644))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, res.Unused)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, []string{"used", "stale"}, readLocale(t, cfg, "zh-CN").Keys())
	assert.Equal(t, []string{"used", "stale"}, readLocale(t, cfg, "en-US").Keys())
	assert.Equal(t, []string{"removed 1 unused key(s) from 2 locale file(s)"}, rep.done)
}

func TestStatus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Languages = []string{"zh-CN", "en-US", "fr-FR"}
	writeLocale(t, cfg, "zh-CN", "a", "甲", "b", "乙")
	writeLocale(t, cfg, "en-US", "a", "A", "b", "")
	s := newSession(t, cfg, &dictTranslator{}, nil)

	st, err := s.Status()
	require.NoError(t, err)
	require.Len(t, st.Languages, 3)
	assert.True(t, st.Languages[0].Baseline)
	assert.Equal(t, 1, st.Languages[1].Translated)
	assert.Equal(t, 50, st.Languages[1].Percent())
	assert.False(t, st.Languages[2].Exists)
	assert.Equal(t, 2, st.Languages[2].Missing)
	assert.Equal(t, StateIdle, st.State)
	assert.False(t, st.Locked)
}

func TestPercentIsMonotonic(t *testing.T) {
	p := percent{total: 3}
	sum := 0
	for i := 0; i < 3; i++ {
		inc := p.add(1)
		assert.GreaterOrEqual(t, inc, 0)
		sum += inc
	}
	assert.Equal(t, 100, sum)
	assert.Zero(t, p.add(5))
}
