// Package tracker supervises the external input listener that reports
// pointer clicks and key combinations as JSON lines on stdout.
package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// Swapped in tests.
var (
	execCommand = exec.CommandContext
	lookPath    = exec.LookPath
	now         = time.Now
)

// healthyRun is how long a listener must stay up before backoff resets.
const healthyRun = 10 * time.Second

// ClickSink receives parsed clicks.
type ClickSink interface {
	Append(click domain.Click) error
}

// Config describes the listener command.
type Config struct {
	Command        string
	Args           []string
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Tracker runs the listener while a recording is active and restarts it
// with backoff when it exits on its own.
type Tracker struct {
	cfg     Config
	sink    ClickSink
	logger  log.Logger
	onCombo func(combo string)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker writing clicks to sink.
func New(cfg Config, sink ClickSink, logger log.Logger) *Tracker {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Tracker{cfg: cfg, sink: sink, logger: logger.With(log.String("component", "tracker"))}
}

// OnCombo registers a callback for key combinations.
func (t *Tracker) OnCombo(fn func(combo string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCombo = fn
}

// Start launches the listener. A tracker without a command is a no-op.
// The listener outlives ctx and runs until Stop.
func (t *Tracker) Start(ctx context.Context) error {
	if t.cfg.Command == "" {
		t.logger.Debug("tracker disabled: no command configured")
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return nil
	}

	path, err := lookPath(t.cfg.Command)
	if err != nil {
		return fmt.Errorf("tracker command %q: %w", t.cfg.Command, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.wg.Add(1)
	go t.supervise(runCtx, path)
	return nil
}

// Stop terminates the listener and waits for the supervisor to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
}

func (t *Tracker) supervise(ctx context.Context, path string) {
	defer t.wg.Done()

	b := newBackoff(t.cfg.BackoffInitial, t.cfg.BackoffMax)
	for {
		started := time.Now()
		err := t.runOnce(ctx, path)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) >= healthyRun {
			b.Reset()
		}
		t.logger.Warn("listener exited, restarting",
			log.Err(err),
			log.Duration("backoff", b.Current()),
		)
		if !b.Wait(ctx) {
			return
		}
	}
}

func (t *Tracker) runOnce(ctx context.Context, path string) error {
	cmd := execCommand(ctx, path, t.cfg.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	t.logger.Info("listener started", log.Int("pid", cmd.Process.Pid))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.logStderr(stderr)
	}()

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		t.handleLine(sc.Bytes())
	}
	wg.Wait()
	return cmd.Wait()
}

func (t *Tracker) logStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			t.logger.Debug("listener", log.String("stderr", line))
		}
	}
}

// message is the union of everything the listener prints.
type message struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"`
	TimeMs int64   `json:"timeMs"`
	Combo  string  `json:"combo"`
}

func (t *Tracker) handleLine(line []byte) {
	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return
	}

	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		t.logger.Warn("unparsable listener output", log.String("line", string(line)), log.Err(err))
		return
	}

	switch msg.Type {
	case "keycombo":
		t.logger.Info("key combo", log.String("combo", msg.Combo))
		t.mu.Lock()
		fn := t.onCombo
		t.mu.Unlock()
		if fn != nil {
			fn(msg.Combo)
		}
	case "", "click":
		click := domain.Click{
			X:      int(math.Round(msg.X)),
			Y:      int(math.Round(msg.Y)),
			Button: strings.TrimPrefix(msg.Button, "Button."),
			TimeMs: msg.TimeMs,
		}
		if click.TimeMs == 0 {
			click.TimeMs = now().UnixMilli()
		}
		if err := t.sink.Append(click); err != nil {
			t.logger.Error("click not recorded", log.Err(err))
		}
	default:
		t.logger.Debug("ignoring listener message", log.String("type", msg.Type))
	}
}

var _ ports.InputTracker = (*Tracker)(nil)
