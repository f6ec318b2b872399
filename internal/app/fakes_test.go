package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jvlcode/screen-recorder/internal/adapters/fs"
	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// fakeProcess is a controllable ports.Process.
type fakeProcess struct {
	pid      int
	stopCode int
	stderr   string

	mu   sync.Mutex
	code int
	once sync.Once
	done chan struct{}
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, code: -1, done: make(chan struct{})}
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code = code
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Stop()                 { p.exit(p.stopCode) }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) Stderr() string        { return p.stderr }

func (p *fakeProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func (p *fakeProcess) Wait(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if code := p.ExitCode(); code != 0 {
		return &domain.ExitError{Op: "ffmpeg", Code: code, Stderr: p.stderr}
	}
	return nil
}

// fakeEncoder records invocations. Run writes the output file (the last
// argument) unless runFn says otherwise.
type fakeEncoder struct {
	mu sync.Mutex

	checkErr error
	mic      string
	micErr   error
	micCalls int
	startErr error
	stopCode int

	procs     []*fakeProcess
	startArgs [][]string
	runs      [][]string
	runFn     func(args []string) error
	durations map[string]float64
}

func (e *fakeEncoder) Check() error { return e.checkErr }

func (e *fakeEncoder) Start(ctx context.Context, args []string) (ports.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return nil, e.startErr
	}
	p := newFakeProcess(1000 + len(e.procs))
	p.stopCode = e.stopCode
	e.procs = append(e.procs, p)
	e.startArgs = append(e.startArgs, args)
	return p, nil
}

func (e *fakeEncoder) Run(ctx context.Context, args []string) error {
	e.mu.Lock()
	e.runs = append(e.runs, args)
	fn := e.runFn
	e.mu.Unlock()

	if fn != nil {
		return fn(args)
	}
	return os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644)
}

func (e *fakeEncoder) ProbeDuration(ctx context.Context, file string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.durations[file]
	if !ok {
		return 0, domain.ErrProbeFailed
	}
	return d, nil
}

func (e *fakeEncoder) AudioDevices(ctx context.Context) ([]string, error) {
	if e.mic == "" {
		return nil, e.micErr
	}
	return []string{e.mic}, e.micErr
}

func (e *fakeEncoder) DefaultMicrophone(ctx context.Context) (string, error) {
	e.mu.Lock()
	e.micCalls++
	e.mu.Unlock()
	return e.mic, e.micErr
}

func (e *fakeEncoder) lastProc() *fakeProcess {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.procs[len(e.procs)-1]
}

func (e *fakeEncoder) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

// fakeTracker counts starts and stops.
type fakeTracker struct {
	mu       sync.Mutex
	startErr error
	starts   int
	stops    int
}

func (t *fakeTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts++
	return t.startErr
}

func (t *fakeTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

// memoryClicks is an in-memory ports.ClickSource.
type memoryClicks struct {
	mu       sync.Mutex
	clicks   []domain.Click
	prunedAt int64
}

func (m *memoryClicks) Clicks(fromMs, toMs int64) ([]domain.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Click
	for _, c := range m.clicks {
		if c.TimeMs >= fromMs && c.TimeMs <= toMs {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryClicks) Prune(beforeMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunedAt = beforeMs
	return nil
}

// memoryCatalog is an in-memory ports.CompilationCatalog.
type memoryCatalog struct {
	mu        sync.Mutex
	reserved  map[string]map[int]bool
	released  []int
	committed []domain.Compilation
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{reserved: map[string]map[int]bool{}}
}

func (c *memoryCatalog) Reserve(ctx context.Context, dir string, floor int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	highest := floor
	for n := range c.reserved[dir] {
		if n > highest {
			highest = n
		}
	}
	if c.reserved[dir] == nil {
		c.reserved[dir] = map[int]bool{}
	}
	c.reserved[dir][highest+1] = true
	return highest + 1, nil
}

func (c *memoryCatalog) Release(ctx context.Context, dir string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reserved[dir], n)
	c.released = append(c.released, n)
	return nil
}

func (c *memoryCatalog) Commit(ctx context.Context, comp domain.Compilation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reserved[filepath.Dir(comp.Path)], comp.Number)
	c.committed = append(c.committed, comp)
	return nil
}

func (c *memoryCatalog) List(ctx context.Context) ([]domain.Compilation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Compilation(nil), c.committed...), nil
}

// fixture bundles a service with its fakes rooted in a temp dir.
type fixture struct {
	t       *testing.T
	root    string
	enc     *fakeEncoder
	store   *fs.SegmentStore
	tracker *fakeTracker
	clicks  *memoryClicks
	catalog *memoryCatalog
	clock   *fakeClock
	svc     *Service
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, tweak func(*Settings)) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:       t,
		root:    root,
		enc:     &fakeEncoder{mic: "Microphone (USB Audio)"},
		store:   fs.NewSegmentStore(filepath.Join(root, "segments"), nil),
		tracker: &fakeTracker{},
		clicks:  &memoryClicks{},
		catalog: newMemoryCatalog(),
		clock:   &fakeClock{now: time.UnixMilli(1_700_000_000_000)},
	}

	settings := DefaultSettings()
	settings.CompilationsDir = filepath.Join(root, "compilations")
	settings.ClickMergeDelay = 0
	settings.ArchiveDelay = 0
	if tweak != nil {
		tweak(&settings)
	}

	f.svc = NewService(Deps{
		Encoder: f.enc,
		Store:   f.store,
		Catalog: f.catalog,
		Tracker: f.tracker,
		Clicks:  f.clicks,
		Logger:  log.NewNoopLogger(),
		Now:     f.clock.Now,
	}, settings)
	return f
}

// addSegment writes a segment and sidecar with the given modification time.
func (f *fixture) addSegment(name string, mod time.Time, meta *domain.SegmentMeta) string {
	f.t.Helper()
	path := filepath.Join(f.store.Dir(), name)
	if err := os.MkdirAll(f.store.Dir(), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("original:"+name), 0o644); err != nil {
		f.t.Fatal(err)
	}
	if meta != nil {
		meta.VideoFile = path
		if err := f.store.WriteMeta(path, *meta); err != nil {
			f.t.Fatal(err)
		}
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		f.t.Fatal(err)
	}
	return path
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
