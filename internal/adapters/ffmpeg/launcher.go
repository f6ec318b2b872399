// Package ffmpeg launches and supervises the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
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
)

// Config controls how the encoder binaries are located and stopped.
type Config struct {
	// FFmpegPath is a binary name resolved on PATH, or an absolute path.
	FFmpegPath string

	// FFprobePath is resolved the same way as FFmpegPath.
	FFprobePath string

	// AudioFormat is the input device format used for device discovery.
	AudioFormat string

	// StopTimeout bounds each escalation step of Process.Stop.
	StopTimeout time.Duration

	// TailLines is how many stderr lines are kept for diagnostics.
	TailLines int
}

// DefaultConfig returns the launcher defaults.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		AudioFormat: "dshow",
		StopTimeout: time.Second,
		TailLines:   40,
	}
}

// Launcher implements ports.Encoder on top of os/exec.
type Launcher struct {
	cfg    Config
	logger log.Logger

	micMu sync.Mutex
	mic   string
}

// New creates a Launcher. Zero config fields take their defaults.
func New(cfg Config, logger log.Logger) *Launcher {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = def.AudioFormat
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = def.TailLines
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Launcher{cfg: cfg, logger: logger.With(log.String("component", "ffmpeg"))}
}

// Check resolves the ffmpeg binary.
func (l *Launcher) Check() error {
	_, err := resolve(l.cfg.FFmpegPath)
	return err
}

// CheckProbe resolves the ffprobe binary.
func (l *Launcher) CheckProbe() error {
	_, err := resolve(l.cfg.FFprobePath)
	return err
}

func resolve(name string) (string, error) {
	path, err := lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrBinaryNotFound, name, err)
	}
	return path, nil
}

func (l *Launcher) command(ctx context.Context, path string, args []string) *exec.Cmd {
	cmd := execCommand(ctx, path, args...)
	configureCmd(cmd)
	return cmd
}

// Start spawns a long-running ffmpeg. The process is not tied to ctx.
func (l *Launcher) Start(ctx context.Context, args []string) (ports.Process, error) {
	path, err := resolve(l.cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}

	cmd := l.command(context.WithoutCancel(ctx), path, args)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	p := newProcess(cmd, stdin, l.cfg.StopTimeout, l.cfg.TailLines,
		l.logger.With(log.Int("pid", cmd.Process.Pid)))
	go p.watch(stderr)

	l.logger.Info("ffmpeg spawned",
		log.Int("pid", cmd.Process.Pid),
		log.Strings("args", args),
	)
	return p, nil
}

// Run executes ffmpeg to completion, logging stderr as it arrives.
func (l *Launcher) Run(ctx context.Context, args []string) error {
	path, err := resolve(l.cfg.FFmpegPath)
	if err != nil {
		return err
	}

	cmd := l.command(ctx, path, args)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	logger := l.logger.With(log.Int("pid", cmd.Process.Pid))
	logger.Debug("ffmpeg spawned", log.Strings("args", args))

	tail := newTail(l.cfg.TailLines)
	drain(stderr, tail, logger)
	err = cmd.Wait()

	code := cmd.ProcessState.ExitCode()
	logger.Info("ffmpeg exited",
		log.Int("code", code),
		log.Duration("elapsed", time.Since(start)),
	)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("ffmpeg: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &domain.ExitError{Op: "ffmpeg", Code: exitErr.ExitCode(), Stderr: tail.String()}
	}
	return fmt.Errorf("wait ffmpeg: %w", err)
}

var _ ports.Encoder = (*Launcher)(nil)
