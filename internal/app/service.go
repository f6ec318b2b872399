// Package app implements the recording session and the segment editing
// operations on top of the ports.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// Deps are the adapters the service runs on. Tracker, Clicks, Catalog and
// Emitter are optional.
type Deps struct {
	Encoder ports.Encoder
	Store   ports.SegmentStore
	Catalog ports.CompilationCatalog
	Tracker ports.InputTracker
	Clicks  ports.ClickSource
	Logger  ports.Logger
	Emitter EventEmitter
	Now     func() time.Time
}

// Service exposes the five recorder operations. Edits (trim, discard and
// finalize) are serialized; a second edit while one runs fails with
// domain.ErrBusy.
type Service struct {
	encoder ports.Encoder
	store   ports.SegmentStore
	catalog ports.CompilationCatalog
	logger  ports.Logger
	now     func() time.Time

	session *Session

	settingsMu sync.RWMutex
	settings   Settings

	editMu sync.Mutex
}

// NewService wires a Service from its dependencies.
func NewService(deps Deps, settings Settings) *Service {
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Service{
		encoder:  deps.Encoder,
		store:    deps.Store,
		catalog:  deps.Catalog,
		logger:   deps.Logger,
		now:      deps.Now,
		settings: settings,
	}
	s.session = newSession(deps, s.Settings)
	return s
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// Reconfigure replaces the settings used by the next operation.
// A recording in progress keeps the settings it started with.
func (s *Service) Reconfigure(settings Settings) {
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	s.logger.Info("settings reloaded")
}

// StartRecording begins a new segment and returns its path.
func (s *Service) StartRecording(ctx context.Context) (string, error) {
	return s.session.Start(ctx)
}

// StopRecording ends the active segment and returns its path.
func (s *Service) StopRecording(ctx context.Context) (string, error) {
	return s.session.Stop(ctx)
}

// Status reports the recording state.
func (s *Service) Status() SessionStatus {
	return s.session.Status()
}

// Segments lists the segments on disk, oldest first.
func (s *Service) Segments() ([]domain.SegmentInfo, error) {
	return s.store.List()
}

// Compilations lists finished compilations, newest first.
func (s *Service) Compilations(ctx context.Context) ([]domain.Compilation, error) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.List(ctx)
}

// Shutdown stops an active recording, if any.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.session.Status().State != StateRecording {
		return nil
	}
	_, err := s.session.Stop(ctx)
	return err
}

func (s *Service) beginEdit() error {
	if !s.editMu.TryLock() {
		return domain.ErrBusy
	}
	return nil
}

func (s *Service) endEdit() {
	s.editMu.Unlock()
}

// checkEditable rejects the segment currently being written.
func (s *Service) checkEditable(path string) error {
	if active := s.session.ActivePath(); active != "" && samePath(active, path) {
		return fmt.Errorf("%w: %s", domain.ErrSegmentActive, path)
	}
	return nil
}

// maybeResume restarts recording after an edit when AutoResume is on.
func (s *Service) maybeResume(ctx context.Context, after string) {
	if !s.Settings().AutoResume || s.session.Status().State != StateIdle {
		return
	}
	if _, err := s.session.Start(ctx); err != nil {
		s.logger.Warn("auto resume failed", ports.String("after", after), ports.Err(err))
	}
}

// classify tags an encoder failure with the operation's error kind.
func classify(err, kind error, op string) error {
	var exitErr *domain.ExitError
	if errors.As(err, &exitErr) {
		return &domain.ExitError{Kind: kind, Op: op, Code: exitErr.Code, Stderr: exitErr.Stderr}
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

var windowsDrive = regexp.MustCompile(`^/[A-Za-z]:`)

// normalizePath accepts plain paths and file:// URLs.
func normalizePath(file string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(file), "file://") {
		return filepath.Clean(file), nil
	}
	u, err := url.Parse(file)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	p := u.Path
	if windowsDrive.MatchString(p) {
		p = p[1:]
	}
	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + p
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
