package app

import (
	"time"

	"github.com/jvlcode/screen-recorder/internal/filtergraph"
)

// Settings are the per-operation knobs read at the start of every recording,
// trim and finalize. They can be swapped at runtime with Service.Reconfigure.
type Settings struct {
	CompilationsDir string

	// Microphone overrides device discovery when set.
	Microphone string

	CaptureFormat   string
	CaptureInput    string
	AudioFormat     string
	Framerate       int
	Preset          string
	CRF             int
	AudioBitrate    string
	AudioSampleRate int

	TrimPreset string
	TrimCRF    int

	RippleImage    string
	RippleSize     int
	RippleDuration time.Duration

	// ClickMergeDelay lets the listener flush its last events before merging.
	ClickMergeDelay time.Duration

	// ArchiveDelay waits for the encoder to release its input handles.
	ArchiveDelay time.Duration

	// EdgeTrim cuts this much from both ends of every input before concat.
	EdgeTrim time.Duration

	// ArchiveMaxBytes bounds the archived inputs kept under CompilationsDir.
	// Zero disables pruning.
	ArchiveMaxBytes int64

	// AutoResume starts a new recording after a successful trim or discard.
	AutoResume bool
}

// DefaultSettings returns the encoder templates used for desktop capture.
func DefaultSettings() Settings {
	return Settings{
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
		ClickMergeDelay: 250 * time.Millisecond,
		ArchiveDelay:    500 * time.Millisecond,
	}
}

func (s Settings) rippleOptions() filtergraph.RippleOptions {
	opts := filtergraph.DefaultRippleOptions()
	if s.RippleSize > 0 {
		opts.Size = s.RippleSize
	}
	if s.RippleDuration > 0 {
		opts.Duration = s.RippleDuration
	}
	return opts
}
