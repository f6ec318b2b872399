package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{4 * time.Second, "4s"},
		{90 * time.Second, "1m30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
		{1499 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "   512 B"},
		{1536, "  1.5 KiB"},
		{5 << 20, "  5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatter_ErrorShowsEncoderOutput(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.Error(&domain.ExitError{Kind: domain.ErrConcatFailed, Op: "concat", Code: 1, Stderr: "line one\nline two\n"})

	out := buf.String()
	if !strings.Contains(out, "recorder: concat failed: concat: exit code 1\n") {
		t.Errorf("headline missing: %q", out)
	}
	if strings.Count(out, "line one") != 1 || !strings.Contains(out, "  line two") {
		t.Errorf("stderr lines wrong: %q", out)
	}
}

func TestFormatter_PlainError(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter(&buf).Error(errors.New("first\nsecond"))

	if got := buf.String(); got != "✗ first\n" {
		t.Errorf("Error() wrote %q", got)
	}
}

func TestFormatter_Lists(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	f.SegmentList(nil)
	f.SegmentList([]domain.SegmentInfo{{Path: "/rec/record_1.mp4", Size: 2048, ModTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}})
	f.Finalized(domain.Compilation{Number: 3, Path: "/out/compilation_3.mp4", ArchiveDir: "/out/compilation_3", Segments: []string{"a", "b"}})

	out := buf.String()
	for _, want := range []string{
		"No pending segments",
		"record_1.mp4 (no meta)",
		"2.0 KiB",
		"Compilation 3: /out/compilation_3.mp4",
		"2 segments archived in /out/compilation_3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatter_Status(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	started := time.Unix(1000, 0)

	f.Status("Idle", "", nil, 0, started)
	f.Status("Recording", "/rec/a.mp4", &started, 42, started.Add(75*time.Second))

	out := buf.String()
	if !strings.Contains(out, "○ Idle") {
		t.Errorf("idle line missing: %q", out)
	}
	if !strings.Contains(out, "Recording /rec/a.mp4 (1m15s, pid 42)") {
		t.Errorf("recording line missing: %q", out)
	}
}
