package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
)

// recording is the bookkeeping for the segment currently being captured.
type recording struct {
	path    string
	startMs int64
	proc    ports.Process
}

// Session owns the single active recording.
type Session struct {
	mu sync.Mutex
	lc *Lifecycle

	encoder  ports.Encoder
	store    ports.SegmentStore
	tracker  ports.InputTracker
	clicks   ports.ClickSource
	logger   ports.Logger
	settings func() Settings
	now      func() time.Time

	active *recording
}

// SessionStatus is a snapshot of the session.
type SessionStatus struct {
	State     State
	File      string
	StartedAt time.Time
	Pid       int
}

func newSession(deps Deps, settings func() Settings) *Session {
	return &Session{
		lc:       NewLifecycle(deps.Logger, deps.Emitter),
		encoder:  deps.Encoder,
		store:    deps.Store,
		tracker:  deps.Tracker,
		clicks:   deps.Clicks,
		logger:   deps.Logger,
		settings: settings,
		now:      deps.Now,
	}
}

// Start begins a new segment. It fails with domain.ErrAlreadyRecording when a
// session is not idle and leaves that session untouched.
func (s *Session) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lc.TransitionTo(StateStarting, "start requested"); err != nil {
		return "", err
	}

	rec, err := s.launch(ctx)
	if err != nil {
		_ = s.lc.TransitionTo(StateIdle, "start failed")
		s.logger.Error("recording not started", ports.Err(err))
		return "", err
	}

	s.active = rec
	_ = s.lc.TransitionTo(StateRecording, "encoder running")
	go s.watch(rec)
	return rec.path, nil
}

func (s *Session) launch(ctx context.Context) (*recording, error) {
	if err := s.encoder.Check(); err != nil {
		return nil, err
	}

	settings := s.settings()
	mic := settings.Microphone
	if mic == "" {
		found, err := s.encoder.DefaultMicrophone(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect microphone: %w", err)
		}
		if found == "" {
			s.logger.Warn("no audio capture device found")
			return nil, domain.ErrNoMicrophone
		}
		mic = found
	}

	started := s.now()
	path, err := s.store.NewSegment(started)
	if err != nil {
		return nil, err
	}
	meta := domain.SegmentMeta{
		VideoFile:    path,
		StartEpochMs: started.UnixMilli(),
		Clicks:       []domain.Click{},
	}
	if err := s.store.WriteMeta(path, meta); err != nil {
		return nil, err
	}

	if s.tracker != nil {
		if err := s.tracker.Start(ctx); err != nil {
			s.logger.Warn("input tracker unavailable, recording without clicks", ports.Err(err))
		}
	}

	proc, err := s.encoder.Start(ctx, recordingArgs(settings, mic, path))
	if err != nil {
		if s.tracker != nil {
			s.tracker.Stop()
		}
		_ = s.store.Discard(path)
		return nil, err
	}

	s.logger.Info("recording started",
		ports.String("file", path),
		ports.String("microphone", mic),
		ports.Int("pid", proc.Pid()),
	)
	return &recording{path: path, startMs: meta.StartEpochMs, proc: proc}, nil
}

// watch returns the session to Idle when the encoder exits without Stop.
func (s *Session) watch(rec *recording) {
	<-rec.proc.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != rec || s.lc.State() != StateRecording {
		return
	}

	s.active = nil
	if s.tracker != nil {
		s.tracker.Stop()
	}
	_ = s.lc.TransitionTo(StateIdle, "encoder exited")
	s.logger.Error("encoder exited while recording",
		ports.String("file", rec.path),
		ports.Int("code", rec.proc.ExitCode()),
		ports.String("stderr", rec.proc.Stderr()),
	)
}

// Stop ends the active segment and returns its path once the encoder has
// exited cleanly. Captured clicks are merged into the sidecar before return.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	rec := s.active
	if rec == nil || s.lc.State() != StateRecording {
		s.mu.Unlock()
		return "", domain.ErrNotRecording
	}
	_ = s.lc.TransitionTo(StateStopping, "stop requested")
	s.mu.Unlock()

	rec.proc.Stop()
	waitErr := rec.proc.Wait(ctx)
	stopMs := s.now().UnixMilli()

	if s.tracker != nil {
		s.tracker.Stop()
	}
	s.mergeClicks(ctx, rec, stopMs)

	s.mu.Lock()
	s.active = nil
	_ = s.lc.TransitionTo(StateIdle, "stopped")
	s.mu.Unlock()

	if waitErr != nil {
		var exitErr *domain.ExitError
		if errors.As(waitErr, &exitErr) {
			return "", &domain.ExitError{Kind: domain.ErrEncoderExit, Op: "record", Code: exitErr.Code, Stderr: exitErr.Stderr}
		}
		return "", fmt.Errorf("record: %w: %w", domain.ErrEncoderExit, waitErr)
	}

	s.logger.Info("recording stopped",
		ports.String("file", rec.path),
		ports.Duration("length", time.Duration(stopMs-rec.startMs)*time.Millisecond),
	)
	return rec.path, nil
}

func (s *Session) mergeClicks(ctx context.Context, rec *recording, stopMs int64) {
	if s.clicks == nil {
		return
	}
	if d := s.settings().ClickMergeDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	events, err := s.clicks.Clicks(rec.startMs, stopMs)
	if err != nil {
		s.logger.Warn("click log unreadable, keeping sidecar without clicks", ports.Err(err))
		return
	}

	meta, err := s.store.LoadMeta(rec.path)
	if err != nil {
		s.logger.Warn("rebuilding sidecar", ports.String("file", rec.path), ports.Err(err))
		meta = domain.SegmentMeta{VideoFile: rec.path, StartEpochMs: rec.startMs}
	}
	meta.Clicks = domain.WindowClicks(events, rec.startMs, stopMs)
	if err := s.store.WriteMeta(rec.path, meta); err != nil {
		s.logger.Error("clicks not saved", ports.String("file", rec.path), ports.Err(err))
		return
	}
	if err := s.clicks.Prune(stopMs); err != nil {
		s.logger.Warn("click log not pruned", ports.Err(err))
	}
	s.logger.Debug("clicks merged", ports.String("file", rec.path), ports.Int("clicks", len(meta.Clicks)))
}

// ActivePath returns the file being recorded, or "".
func (s *Session) ActivePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.path
}

// Status returns a snapshot of the session.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	rec := s.active
	s.mu.Unlock()

	st := SessionStatus{State: s.lc.State()}
	if rec != nil {
		st.File = rec.path
		st.StartedAt = time.UnixMilli(rec.startMs)
		st.Pid = rec.proc.Pid()
	}
	return st
}
