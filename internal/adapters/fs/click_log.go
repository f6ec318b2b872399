package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// ClickLog is an append-only JSON-lines file of clicks with epoch timestamps.
type ClickLog struct {
	mu     sync.Mutex
	path   string
	logger log.Logger
}

// NewClickLog creates a click log at path. The file is created on first append.
func NewClickLog(path string, logger log.Logger) *ClickLog {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &ClickLog{path: path, logger: logger.With(log.String("component", "clicklog"))}
}

// Path returns the log file location.
func (c *ClickLog) Path() string {
	return c.path
}

// Append writes one click as a JSON line.
func (c *ClickLog) Append(click domain.Click) error {
	line, err := json.Marshal(click)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Clicks returns logged clicks with fromMs <= TimeMs <= toMs.
// A missing log yields no clicks; malformed lines are skipped.
func (c *ClickLog) Clicks(fromMs, toMs int64) ([]domain.Click, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Click, 0, len(all))
	for _, click := range all {
		if click.TimeMs >= fromMs && click.TimeMs <= toMs {
			out = append(out, click)
		}
	}
	return out, nil
}

// Prune rewrites the log without clicks older than beforeMs.
func (c *ClickLog) Prune(beforeMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.readLocked()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	kept := 0
	for _, click := range all {
		if click.TimeMs < beforeMs {
			continue
		}
		line, err := json.Marshal(click)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		kept++
	}
	if kept == len(all) {
		return nil
	}
	c.logger.Debug("click log pruned", log.Int("dropped", len(all)-kept), log.Int("kept", kept))
	return writeFileAtomic(c.path, buf.Bytes())
}

func (c *ClickLog) readLocked() ([]domain.Click, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open click log: %w", err)
	}
	defer f.Close()

	var clicks []domain.Click
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var click domain.Click
		if err := json.Unmarshal(line, &click); err != nil {
			c.logger.Warn("skipping malformed click", log.Int("line", lineNo), log.Err(err))
			continue
		}
		clicks = append(clicks, click)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read click log: %w", err)
	}
	return clicks, nil
}

var _ ports.ClickSource = (*ClickLog)(nil)
