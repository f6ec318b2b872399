// Package daemon serves the recorder over a local socket using NDJSON: one
// Request per line in, one Response per line out.
package daemon

import (
	"errors"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// Operations understood by the server.
const (
	OpStart        = "start"
	OpStop         = "stop"
	OpTrim         = "trim"
	OpDiscard      = "discard"
	OpFinalize     = "finalize"
	OpStatus       = "status"
	OpSegments     = "segments"
	OpCompilations = "compilations"
)

// Request is sent from a client to the daemon.
type Request struct {
	Op       string   `json:"op"`
	File     string   `json:"file,omitempty"`
	StartSec *float64 `json:"startSec,omitempty"`
	EndSec   *float64 `json:"endSec,omitempty"`
}

// Response is returned by the daemon after processing a request.
type Response struct {
	OK    bool   `json:"ok"`
	File  string `json:"file,omitempty"`
	State string `json:"state,omitempty"`
	Pid   int    `json:"pid,omitempty"`

	StartedAt *time.Time `json:"startedAt,omitempty"`

	Segments     []domain.SegmentInfo `json:"segments,omitempty"`
	Compilation  *domain.Compilation  `json:"compilation,omitempty"`
	Compilations []domain.Compilation `json:"compilations,omitempty"`

	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
	Op       string `json:"failedOp,omitempty"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// Float64Ptr returns a pointer to v. Convenience for building requests.
func Float64Ptr(v float64) *float64 { return &v }

// errorResponse encodes err with enough detail to rebuild it client side.
func errorResponse(err error) Response {
	resp := Response{Error: err.Error(), Code: domain.ErrorCode(err)}
	var exitErr *domain.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.Code
		resp.ExitCode = &code
		resp.Op = exitErr.Op
		resp.Stderr = exitErr.Stderr
	}
	return resp
}

// RemoteError is a daemon failure. It matches the domain sentinel named by
// the response code with errors.Is.
type RemoteError struct {
	Kind error
	Msg  string
}

func (e *RemoteError) Error() string { return e.Msg }

func (e *RemoteError) Unwrap() error { return e.Kind }

// ErrorFromResponse returns nil for a successful response and otherwise an
// error matching the original domain sentinel. Process failures come back
// as *domain.ExitError.
func ErrorFromResponse(resp Response) error {
	if resp.OK {
		return nil
	}
	kind := domain.ErrorForCode(resp.Code)
	if resp.ExitCode != nil {
		return &domain.ExitError{Kind: kind, Op: resp.Op, Code: *resp.ExitCode, Stderr: resp.Stderr}
	}
	msg := resp.Error
	if msg == "" {
		msg = "daemon: request failed"
	}
	return &RemoteError{Kind: kind, Msg: msg}
}
