package cliconfig

import (
	"os"
	"time"
)

// ApplyEnvConfig applies configuration from environment variables (SCREENREC_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", os.Getenv("SCREENREC_DATA_DIR"), &cfg.DataDir)
	s.setString("segments-dir", os.Getenv("SCREENREC_SEGMENTS_DIR"), &cfg.SegmentsDir)
	s.setString("compilations-dir", os.Getenv("SCREENREC_COMPILATIONS_DIR"), &cfg.CompilationsDir)
	s.setString("click-log", os.Getenv("SCREENREC_CLICK_LOG"), &cfg.ClickLog)
	s.setString("catalog", os.Getenv("SCREENREC_CATALOG_PATH"), &cfg.CatalogPath)
	s.setString("socket", os.Getenv("SCREENREC_SOCKET_PATH"), &cfg.SocketPath)
	s.setString("ffmpeg", os.Getenv("SCREENREC_FFMPEG_PATH"), &cfg.FFmpegPath)
	s.setString("ffprobe", os.Getenv("SCREENREC_FFPROBE_PATH"), &cfg.FFprobePath)
	s.setString("microphone", os.Getenv("SCREENREC_MICROPHONE"), &cfg.Microphone)
	s.setString("capture-format", os.Getenv("SCREENREC_CAPTURE_FORMAT"), &cfg.CaptureFormat)
	s.setString("capture-input", os.Getenv("SCREENREC_CAPTURE_INPUT"), &cfg.CaptureInput)
	s.setString("audio-format", os.Getenv("SCREENREC_AUDIO_FORMAT"), &cfg.AudioFormat)
	s.setString("preset", os.Getenv("SCREENREC_PRESET"), &cfg.Preset)
	s.setString("audio-bitrate", os.Getenv("SCREENREC_AUDIO_BITRATE"), &cfg.AudioBitrate)
	s.setString("trim-preset", os.Getenv("SCREENREC_TRIM_PRESET"), &cfg.TrimPreset)
	s.setString("ripple-image", os.Getenv("SCREENREC_RIPPLE_IMAGE"), &cfg.RippleImage)
	s.setString("tracker", os.Getenv("SCREENREC_TRACKER_COMMAND"), &cfg.TrackerCommand)
	s.setStringsFromString("tracker-arg", os.Getenv("SCREENREC_TRACKER_ARGS"), &cfg.TrackerArgs)
	s.setString("log-level", os.Getenv("SCREENREC_LOG_LEVEL"), &cfg.LogLevel)

	ints := []struct {
		flag string
		env  string
		dst  *int
	}{
		{"framerate", "SCREENREC_FRAMERATE", &cfg.Framerate},
		{"crf", "SCREENREC_CRF", &cfg.CRF},
		{"audio-sample-rate", "SCREENREC_AUDIO_SAMPLE_RATE", &cfg.AudioSampleRate},
		{"trim-crf", "SCREENREC_TRIM_CRF", &cfg.TrimCRF},
		{"ripple-size", "SCREENREC_RIPPLE_SIZE", &cfg.RippleSize},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, os.Getenv(i.env), i.dst); err != nil {
			return err
		}
	}
	if err := s.setInt64FromString("archive-max-bytes", os.Getenv("SCREENREC_ARCHIVE_MAX_BYTES"), &cfg.ArchiveMaxBytes); err != nil {
		return err
	}

	durations := []struct {
		flag string
		env  string
		dst  *time.Duration
	}{
		{"ripple-duration", "SCREENREC_RIPPLE_DURATION", &cfg.RippleDuration},
		{"click-merge-delay", "SCREENREC_CLICK_MERGE_DELAY", &cfg.ClickMergeDelay},
		{"stop-timeout", "SCREENREC_STOP_TIMEOUT", &cfg.StopTimeout},
		{"archive-delay", "SCREENREC_ARCHIVE_DELAY", &cfg.ArchiveDelay},
		{"edge-trim", "SCREENREC_EDGE_TRIM", &cfg.EdgeTrim},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, os.Getenv(d.env), d.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("auto-resume", os.Getenv("SCREENREC_AUTO_RESUME"), &cfg.AutoResume)

	return nil
}
