package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/jvlcode/screen-recorder/internal/app"
	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// Recorder is the service surface exposed over the socket.
type Recorder interface {
	StartRecording(ctx context.Context) (string, error)
	StopRecording(ctx context.Context) (string, error)
	TrimSegment(ctx context.Context, file string, startSec, endSec float64) (string, error)
	DiscardSegment(ctx context.Context, file string) (string, error)
	Finalize(ctx context.Context) (domain.Compilation, error)
	Status() app.SessionStatus
	Segments() ([]domain.SegmentInfo, error)
	Compilations(ctx context.Context) ([]domain.Compilation, error)
}

// ErrDaemonRunning is returned by Serve when another daemon owns the socket.
var ErrDaemonRunning = errors.New("daemon: already running")

const maxLine = 1024 * 1024

// Server accepts client connections and dispatches their requests.
type Server struct {
	socketPath string
	rec        Recorder
	logger     log.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a server for rec listening on socketPath.
func NewServer(socketPath string, rec Recorder, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Server{
		socketPath: socketPath,
		rec:        rec,
		logger:     logger.With(log.String("component", "daemon")),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Serve listens until ctx is cancelled. A stale socket left by a crashed
// daemon is removed; a live one fails with ErrDaemonRunning.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if conn, err := net.Dial("unix", s.socketPath); err == nil {
		conn.Close()
		return ErrDaemonRunning
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	_ = os.Chmod(s.socketPath, 0o600)

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("daemon listening", log.String("socket", s.socketPath))

	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept failed", log.Err(err))
			continue
		}
		s.track(conn, true)
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}

	s.close()
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	s.logger.Info("daemon stopped")
	return nil
}

func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln != nil {
		_ = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.track(conn, false)
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp = Response{Error: fmt.Sprintf("invalid request: %v", err)}
		} else {
			resp = s.dispatch(ctx, req)
		}
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("client gone", log.Err(err))
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	s.logger.Debug("request", log.String("op", req.Op), log.String("file", req.File))

	var (
		resp Response
		err  error
	)
	switch req.Op {
	case OpStart:
		resp.File, err = s.rec.StartRecording(ctx)
	case OpStop:
		resp.File, err = s.rec.StopRecording(ctx)
	case OpTrim:
		if req.StartSec == nil || req.EndSec == nil {
			err = fmt.Errorf("%w: startSec and endSec are required", domain.ErrInvalidRange)
			break
		}
		resp.File, err = s.rec.TrimSegment(ctx, req.File, *req.StartSec, *req.EndSec)
	case OpDiscard:
		resp.File, err = s.rec.DiscardSegment(ctx, req.File)
	case OpFinalize:
		var comp domain.Compilation
		comp, err = s.rec.Finalize(ctx)
		if err == nil {
			resp.Compilation = &comp
			resp.File = comp.Path
		}
	case OpStatus:
		st := s.rec.Status()
		resp.State = st.State.String()
		resp.File = st.File
		resp.Pid = st.Pid
		if !st.StartedAt.IsZero() {
			resp.StartedAt = &st.StartedAt
		}
	case OpSegments:
		resp.Segments, err = s.rec.Segments()
	case OpCompilations:
		resp.Compilations, err = s.rec.Compilations(ctx)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}

	if err != nil {
		s.logger.Warn("request failed", log.String("op", req.Op), log.Err(err))
		return errorResponse(err)
	}
	resp.OK = true
	return resp
}
