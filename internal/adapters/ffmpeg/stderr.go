package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/jvlcode/screen-recorder/pkg/log"
)

// drain reads r until EOF, logging every line and keeping the last ones.
func drain(r io.Reader, t *tail, logger log.Logger) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(scanProgressLines)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		t.Add(line)
		logger.Debug("ffmpeg", log.String("stderr", line))
	}
	if err := sc.Err(); err != nil {
		logger.Warn("stderr read failed", log.Err(err))
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanProgressLines splits on '\n' and on the bare '\r' ffmpeg uses to
// redraw its progress line.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tail keeps the last n lines written to it.
type tail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
