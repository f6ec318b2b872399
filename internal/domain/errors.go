package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent error conditions in the recorder domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrBinaryNotFound is returned when the encoder or prober cannot be located.
	ErrBinaryNotFound = errors.New("recorder: encoder binary not found")

	// ErrAlreadyRecording is returned when Start() is called while a session is active.
	ErrAlreadyRecording = errors.New("recorder: already recording")

	// ErrNotRecording is returned when Stop() is called without an active session.
	ErrNotRecording = errors.New("recorder: not recording")

	// ErrNoMicrophone is returned when no audio capture device could be found.
	ErrNoMicrophone = errors.New("recorder: no microphone found")

	// ErrProbeFailed is returned when the duration of a file cannot be determined.
	ErrProbeFailed = errors.New("recorder: probe failed")

	// ErrMetaMissing is returned when a segment has no sidecar.
	ErrMetaMissing = errors.New("recorder: meta file missing")

	// ErrInvalidMeta is returned when a sidecar is malformed or incomplete.
	ErrInvalidMeta = errors.New("recorder: invalid meta")

	// ErrInvalidRange is returned when a trim window is not 0 <= start < end.
	ErrInvalidRange = errors.New("recorder: invalid trim range")

	// ErrEncodeFailed is returned when a trim encode exits non-zero.
	ErrEncodeFailed = errors.New("recorder: encode failed")

	// ErrEncoderExit is returned when a recording encoder exits non-zero on stop.
	ErrEncoderExit = errors.New("recorder: encoder exited with error")

	// ErrNoSegments is returned when finalize finds nothing to concatenate.
	ErrNoSegments = errors.New("recorder: no segments found")

	// ErrConcatFailed is returned when the concat encode exits non-zero.
	ErrConcatFailed = errors.New("recorder: concat failed")

	// ErrBusy is returned when an edit operation is already in flight.
	ErrBusy = errors.New("recorder: another operation is in progress")

	// ErrSegmentActive is returned when an edit targets the file being recorded.
	ErrSegmentActive = errors.New("recorder: segment is being recorded")
)

// ExitError describes an external process that exited with a non-zero code.
// Kind is one of the sentinel errors above; errors.Is matches against it.
type ExitError struct {
	Kind   error
	Op     string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit code %d", e.Op, e.Code)
	if e.Kind != nil {
		msg = e.Kind.Error() + ": " + msg
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Unwrap returns the sentinel kind.
func (e *ExitError) Unwrap() error {
	return e.Kind
}

// codes maps sentinels to stable identifiers used across process boundaries.
// Operation kinds come first so that an encode failure caused by a missing
// binary reports the operation that failed.
var codes = []struct {
	code string
	err  error
}{
	{"encode_failed", ErrEncodeFailed},
	{"concat_failed", ErrConcatFailed},
	{"encoder_exit", ErrEncoderExit},
	{"binary_not_found", ErrBinaryNotFound},
	{"already_recording", ErrAlreadyRecording},
	{"not_recording", ErrNotRecording},
	{"no_microphone", ErrNoMicrophone},
	{"probe_failed", ErrProbeFailed},
	{"meta_missing", ErrMetaMissing},
	{"invalid_meta", ErrInvalidMeta},
	{"invalid_range", ErrInvalidRange},
	{"no_segments", ErrNoSegments},
	{"busy", ErrBusy},
	{"segment_active", ErrSegmentActive},
}

// ErrorCode returns the stable identifier of the sentinel wrapped by err,
// or "" when err does not wrap a domain error.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ErrorForCode returns the sentinel for a code produced by ErrorCode.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
