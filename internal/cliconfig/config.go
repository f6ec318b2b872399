package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds CLI configuration for screenrec.
type Config struct {
	DataDir         string
	SegmentsDir     string
	CompilationsDir string
	ClickLog        string
	CatalogPath     string
	SocketPath      string

	FFmpegPath  string
	FFprobePath string
	Microphone  string

	CaptureFormat   string
	CaptureInput    string
	AudioFormat     string
	Framerate       int
	Preset          string
	CRF             int
	AudioBitrate    string
	AudioSampleRate int

	TrimPreset     string
	TrimCRF        int
	RippleImage    string
	RippleSize     int
	RippleDuration time.Duration

	TrackerCommand string
	TrackerArgs    []string

	ClickMergeDelay time.Duration
	StopTimeout     time.Duration
	ArchiveDelay    time.Duration
	EdgeTrim        time.Duration
	ArchiveMaxBytes int64

	LogLevel   string
	AutoResume bool
}

// DefaultTrackerCommand runs the bundled listener script from
// <data-dir>/resources/python unless tracker arguments are given.
const DefaultTrackerCommand = "python"

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:         defaultDataDir(),
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		CaptureFormat:   "gdigrab",
		CaptureInput:    "desktop",
		AudioFormat:     "dshow",
		Framerate:       30,
		Preset:          "fast",
		CRF:             14,
		AudioBitrate:    "320k",
		AudioSampleRate: 44100,
		TrimPreset:      "veryfast",
		TrimCRF:         14,
		RippleSize:      50,
		RippleDuration:  500 * time.Millisecond,
		TrackerCommand:  DefaultTrackerCommand,
		ClickMergeDelay: 250 * time.Millisecond,
		StopTimeout:     time.Second,
		ArchiveDelay:    500 * time.Millisecond,
		LogLevel:        "info",
	}
}

func defaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".screenrec")
	}
	return ".screenrec"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}

	if c.SegmentsDir == "" {
		c.SegmentsDir = filepath.Join(c.DataDir, "segments")
	}
	if c.CompilationsDir == "" {
		c.CompilationsDir = filepath.Join(c.DataDir, "compilations")
	}
	if c.ClickLog == "" {
		c.ClickLog = filepath.Join(c.DataDir, "clicks.jsonl")
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.SocketPath == "" {
		c.SocketPath = filepath.Join(c.DataDir, "screenrec.sock")
	}
	if c.RippleImage == "" {
		c.RippleImage = filepath.Join(c.DataDir, "resources", "ripple.png")
	}
	if c.TrackerCommand == DefaultTrackerCommand && len(c.TrackerArgs) == 0 {
		c.TrackerArgs = []string{filepath.Join(c.DataDir, "resources", "python", "mouse_tracker.py")}
	}

	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path is required")
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("framerate must be positive")
	}
	if c.CRF < 0 || c.CRF > 51 || c.TrimCRF < 0 || c.TrimCRF > 51 {
		return fmt.Errorf("crf must be between 0 and 51")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive")
	}
	if c.ArchiveMaxBytes < 0 {
		return fmt.Errorf("archive max bytes must not be negative")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list when the source is non-empty.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
// "0s" is accepted and disables the corresponding delay.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setStringsFromString splits a whitespace separated list.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = strings.Fields(value)
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
