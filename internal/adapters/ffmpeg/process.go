package ffmpeg

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// process implements ports.Process.
type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	timeout time.Duration
	logger  log.Logger
	tail    *tail

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	exitCode int
}

func newProcess(cmd *exec.Cmd, stdin io.WriteCloser, timeout time.Duration, tailLines int, logger log.Logger) *process {
	return &process{
		cmd:      cmd,
		stdin:    stdin,
		timeout:  timeout,
		logger:   logger,
		tail:     newTail(tailLines),
		done:     make(chan struct{}),
		exitCode: -1,
	}
}

// watch drains stderr and reaps the child. It runs from the moment of spawn.
func (p *process) watch(stderr io.Reader) {
	start := time.Now()
	drain(stderr, p.tail, p.logger)
	_ = p.cmd.Wait()

	code := p.cmd.ProcessState.ExitCode()
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()

	_ = p.stdin.Close()
	p.logger.Info("ffmpeg exited",
		log.Int("code", code),
		log.Duration("elapsed", time.Since(start)),
	)
	close(p.done)
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) Stderr() string {
	return p.tail.String()
}

// Stop sends "q" on stdin, then an interrupt, then a kill, waiting up to the
// stop timeout between steps. It returns once the process has exited.
func (p *process) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		if _, err := io.WriteString(p.stdin, "q\n"); err != nil {
			p.logger.Warn("quit request failed, interrupting", log.Err(err))
			p.interrupt()
		}
		if p.waitFor(p.timeout) {
			return
		}

		p.logger.Warn("ffmpeg still running after quit request, interrupting",
			log.Duration("timeout", p.timeout))
		p.interrupt()
		if p.waitFor(p.timeout) {
			return
		}

		p.logger.Error("ffmpeg ignored interrupt, killing")
		_ = p.cmd.Process.Kill()
		<-p.done
	})
}

func (p *process) interrupt() {
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = p.cmd.Process.Kill()
	}
}

func (p *process) waitFor(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

func (p *process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if code := p.ExitCode(); code != 0 {
		return &domain.ExitError{Op: "ffmpeg", Code: code, Stderr: p.Stderr()}
	}
	return nil
}
