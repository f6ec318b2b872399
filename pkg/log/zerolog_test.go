package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewConsole_WritesJSONToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(&buf, "debug")

	logger.With(String("component", "ffmpeg")).Info("spawned",
		Int("pid", 42),
		Duration("elapsed", time.Second),
		Strings("args", []string{"-y", "out.mp4"}),
		Err(errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "spawned" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "ffmpeg" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["pid"] != float64(42) {
		t.Errorf("pid = %v", entry["pid"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestNewConsole_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(&buf, "warn")

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn to be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"":       zerolog.InfoLevel,
		"bogus":  zerolog.InfoLevel,
		"error":  zerolog.ErrorLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
