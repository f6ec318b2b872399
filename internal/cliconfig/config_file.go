package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DataDir         string   `toml:"data_dir"`
	SegmentsDir     string   `toml:"segments_dir"`
	CompilationsDir string   `toml:"compilations_dir"`
	ClickLog        string   `toml:"click_log"`
	CatalogPath     string   `toml:"catalog_path"`
	SocketPath      string   `toml:"socket_path"`
	FFmpegPath      string   `toml:"ffmpeg_path"`
	FFprobePath     string   `toml:"ffprobe_path"`
	Microphone      string   `toml:"microphone"`
	CaptureFormat   string   `toml:"capture_format"`
	CaptureInput    string   `toml:"capture_input"`
	AudioFormat     string   `toml:"audio_format"`
	Framerate       int      `toml:"framerate"`
	Preset          string   `toml:"preset"`
	CRF             int      `toml:"crf"`
	AudioBitrate    string   `toml:"audio_bitrate"`
	AudioSampleRate int      `toml:"audio_sample_rate"`
	TrimPreset      string   `toml:"trim_preset"`
	TrimCRF         int      `toml:"trim_crf"`
	RippleImage     string   `toml:"ripple_image"`
	RippleSize      int      `toml:"ripple_size"`
	RippleDuration  string   `toml:"ripple_duration"`
	TrackerCommand  string   `toml:"tracker_command"`
	TrackerArgs     []string `toml:"tracker_args"`
	ClickMergeDelay string   `toml:"click_merge_delay"`
	StopTimeout     string   `toml:"stop_timeout"`
	ArchiveDelay    string   `toml:"archive_delay"`
	EdgeTrim        string   `toml:"edge_trim"`
	ArchiveMaxBytes int64    `toml:"archive_max_bytes"`
	LogLevel        string   `toml:"log_level"`
	AutoResume      *bool    `toml:"auto_resume"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.screenrec/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".screenrec", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("segments-dir", fc.SegmentsDir, &cfg.SegmentsDir)
	s.setString("compilations-dir", fc.CompilationsDir, &cfg.CompilationsDir)
	s.setString("click-log", fc.ClickLog, &cfg.ClickLog)
	s.setString("catalog", fc.CatalogPath, &cfg.CatalogPath)
	s.setString("socket", fc.SocketPath, &cfg.SocketPath)
	s.setString("ffmpeg", fc.FFmpegPath, &cfg.FFmpegPath)
	s.setString("ffprobe", fc.FFprobePath, &cfg.FFprobePath)
	s.setString("microphone", fc.Microphone, &cfg.Microphone)
	s.setString("capture-format", fc.CaptureFormat, &cfg.CaptureFormat)
	s.setString("capture-input", fc.CaptureInput, &cfg.CaptureInput)
	s.setString("audio-format", fc.AudioFormat, &cfg.AudioFormat)
	s.setString("preset", fc.Preset, &cfg.Preset)
	s.setString("audio-bitrate", fc.AudioBitrate, &cfg.AudioBitrate)
	s.setString("trim-preset", fc.TrimPreset, &cfg.TrimPreset)
	s.setString("ripple-image", fc.RippleImage, &cfg.RippleImage)
	s.setString("tracker", fc.TrackerCommand, &cfg.TrackerCommand)
	s.setStrings("tracker-arg", fc.TrackerArgs, &cfg.TrackerArgs)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("framerate", fc.Framerate, &cfg.Framerate)
	s.setInt("crf", fc.CRF, &cfg.CRF)
	s.setInt("audio-sample-rate", fc.AudioSampleRate, &cfg.AudioSampleRate)
	s.setInt("trim-crf", fc.TrimCRF, &cfg.TrimCRF)
	s.setInt("ripple-size", fc.RippleSize, &cfg.RippleSize)
	s.setInt64("archive-max-bytes", fc.ArchiveMaxBytes, &cfg.ArchiveMaxBytes)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"ripple-duration", fc.RippleDuration, &cfg.RippleDuration},
		{"click-merge-delay", fc.ClickMergeDelay, &cfg.ClickMergeDelay},
		{"stop-timeout", fc.StopTimeout, &cfg.StopTimeout},
		{"archive-delay", fc.ArchiveDelay, &cfg.ArchiveDelay},
		{"edge-trim", fc.EdgeTrim, &cfg.EdgeTrim},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("auto-resume", fc.AutoResume, &cfg.AutoResume)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
