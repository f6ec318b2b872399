package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/jvlcode/screen-recorder/internal/cliconfig"
	"github.com/jvlcode/screen-recorder/internal/output"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

const helpDescription = `
Record the desktop and microphone as a series of segments, trim or drop
the takes you don't want, then join the rest into a numbered compilation.

Recording, trimming and joining are done by ffmpeg. Run "screenrec serve"
to keep a recorder in the background and drive it from other commands,
or "screenrec record" for a single foreground take.

Configuration is read from $HOME/.screenrec/config.toml, then SCREENREC_*
environment variables, then flags.
`

var exampleUsage = strings.TrimSpace(`
  screenrec serve &
  screenrec start
  screenrec stop
  screenrec trim ~/.screenrec/segments/record_1718000000000_....mp4 1.5 42
  screenrec finalize
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries configuration shared by every command.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string

	// flags is cfg as set by flags and defaults, before file and env.
	flags   cliconfig.Config
	changed map[string]bool

	logger log.Logger
	out    *output.Formatter
	errOut *output.Formatter
}

func main() {
	c := &cli{
		cfg:    cliconfig.DefaultConfig(),
		out:    output.NewFormatter(os.Stdout),
		errOut: output.NewFormatter(os.Stderr),
	}

	root := &cobra.Command{
		Use:               "screenrec",
		Short:             "Segment-based screen recorder driven by ffmpeg",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load(cmd) },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.screenrec/config.toml)")
	pf.StringVar(&c.cfg.DataDir, "data-dir", c.cfg.DataDir, "directory for segments, compilations and state")
	pf.StringVar(&c.cfg.SocketPath, "socket", c.cfg.SocketPath, "daemon socket path (default: <data-dir>/screenrec.sock)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&c.cfg.FFmpegPath, "ffmpeg", c.cfg.FFmpegPath, "ffmpeg binary name or path")
	pf.StringVar(&c.cfg.FFprobePath, "ffprobe", c.cfg.FFprobePath, "ffprobe binary name or path")
	pf.StringVar(&c.cfg.AudioFormat, "audio-format", c.cfg.AudioFormat, "ffmpeg input format for audio devices")

	root.AddCommand(
		c.serveCommand(),
		c.recordCommand(),
		c.startCommand(),
		c.stopCommand(),
		c.trimCommand(),
		c.discardCommand(),
		c.finalizeCommand(),
		c.statusCommand(),
		c.segmentsCommand(),
		c.compilationsCommand(),
		c.devicesCommand(),
		c.probeCommand(),
		c.doctorCommand(),
	)

	if err := root.Execute(); err != nil {
		c.errOut.Error(err)
		os.Exit(1)
	}
}

// addRecorderFlags binds the flags that shape recordings and edits.
func (c *cli) addRecorderFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.cfg.SegmentsDir, "segments-dir", c.cfg.SegmentsDir, "segment directory (default: <data-dir>/segments)")
	fs.StringVar(&c.cfg.CompilationsDir, "compilations-dir", c.cfg.CompilationsDir, "compilation directory (default: <data-dir>/compilations)")
	fs.StringVar(&c.cfg.Microphone, "microphone", c.cfg.Microphone, "audio device name (default: first detected device)")
	fs.StringVar(&c.cfg.CaptureFormat, "capture-format", c.cfg.CaptureFormat, "ffmpeg input format for the screen")
	fs.StringVar(&c.cfg.CaptureInput, "capture-input", c.cfg.CaptureInput, "ffmpeg input for the screen")
	fs.IntVar(&c.cfg.Framerate, "framerate", c.cfg.Framerate, "capture framerate")
	fs.StringVar(&c.cfg.Preset, "preset", c.cfg.Preset, "x264 preset for recording")
	fs.IntVar(&c.cfg.CRF, "crf", c.cfg.CRF, "x264 CRF for recording")
	fs.StringVar(&c.cfg.AudioBitrate, "audio-bitrate", c.cfg.AudioBitrate, "AAC bitrate")
	fs.IntVar(&c.cfg.AudioSampleRate, "audio-sample-rate", c.cfg.AudioSampleRate, "audio sample rate")
	fs.StringVar(&c.cfg.TrimPreset, "trim-preset", c.cfg.TrimPreset, "x264 preset for trims")
	fs.IntVar(&c.cfg.TrimCRF, "trim-crf", c.cfg.TrimCRF, "x264 CRF for trims")
	fs.StringVar(&c.cfg.RippleImage, "ripple-image", c.cfg.RippleImage, "image drawn at click positions when trimming (default: <data-dir>/resources/ripple.png)")
	fs.IntVar(&c.cfg.RippleSize, "ripple-size", c.cfg.RippleSize, "click marker size in pixels")
	fs.DurationVar(&c.cfg.RippleDuration, "ripple-duration", c.cfg.RippleDuration, "how long each click marker is shown")
	fs.StringVar(&c.cfg.TrackerCommand, "tracker", c.cfg.TrackerCommand, "input listener command (empty disables click capture)")
	fs.StringSliceVar(&c.cfg.TrackerArgs, "tracker-arg", c.cfg.TrackerArgs, "input listener arguments (default: <data-dir>/resources/python/mouse_tracker.py)")
	fs.StringVar(&c.cfg.ClickLog, "click-log", c.cfg.ClickLog, "click log path (default: <data-dir>/clicks.jsonl)")
	fs.StringVar(&c.cfg.CatalogPath, "catalog", c.cfg.CatalogPath, "compilation catalog path (default: <data-dir>/catalog.db)")
	fs.DurationVar(&c.cfg.ClickMergeDelay, "click-merge-delay", c.cfg.ClickMergeDelay, "wait for late clicks before merging them on stop")
	fs.DurationVar(&c.cfg.StopTimeout, "stop-timeout", c.cfg.StopTimeout, "time allowed for each stop escalation step")
	fs.DurationVar(&c.cfg.ArchiveDelay, "archive-delay", c.cfg.ArchiveDelay, "wait after joining before archiving inputs")
	fs.DurationVar(&c.cfg.EdgeTrim, "edge-trim", c.cfg.EdgeTrim, "cut this much from both ends of every segment when joining")
	fs.Int64Var(&c.cfg.ArchiveMaxBytes, "archive-max-bytes", c.cfg.ArchiveMaxBytes, "prune oldest archived inputs above this size (0 keeps all)")
	fs.BoolVar(&c.cfg.AutoResume, "auto-resume", c.cfg.AutoResume, "start a new recording after trim or discard")
}

// load applies the config file and environment under the flags, validates
// the result and sets up logging.
func (c *cli) load(cmd *cobra.Command) error {
	c.changed = map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { c.changed[f.Name] = true })
	c.flags = c.cfg

	cfg, err := c.resolve()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = log.NewConsole(os.Stderr, cfg.LogLevel)
	return nil
}

// resolve builds the effective configuration. It is called again when the
// config file changes.
func (c *cli) resolve() (cliconfig.Config, error) {
	cfg := c.flags
	cfg.TrackerArgs = append([]string(nil), c.flags.TrackerArgs...)

	if path := c.configFile(); path != "" && cliconfig.FileExists(path) {
		fc, err := cliconfig.LoadFileConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, c.changed); err != nil {
			return cfg, err
		}
	}

	// Environment overrides the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&cfg, c.changed); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *cli) configFile() string {
	if c.cfgPath != "" {
		return c.cfgPath
	}
	return cliconfig.DefaultConfigPath()
}
