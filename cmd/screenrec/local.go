package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvlcode/screen-recorder/internal/adapters/ffmpeg"
	"github.com/jvlcode/screen-recorder/internal/cliconfig"
	"github.com/jvlcode/screen-recorder/internal/daemon"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

func (c *cli) recordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one segment in the foreground",
		Long: `Record a single segment without the daemon. Press Ctrl+C to stop.

The segment is left in the segments directory; finalize it later through
the daemon or another record session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.record()
		},
	}
	c.addRecorderFlags(cmd.Flags())
	return cmd
}

func (c *cli) record() error {
	ctx := context.Background()
	watcher := newExitWatcher()

	rec, err := newRecorder(ctx, c.cfg, c.logger, watcher, false)
	if err != nil {
		return err
	}
	defer rec.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	file, err := rec.svc.StartRecording(ctx)
	if err != nil {
		return err
	}
	started := time.Now()
	c.out.RecordingStarted(file)

	select {
	case <-sigCh:
	case <-watcher.exited:
		return fmt.Errorf("ffmpeg exited before the recording was stopped: %s", file)
	}

	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	file, err = rec.svc.StopRecording(stopCtx)
	if err != nil {
		return err
	}
	c.out.RecordingStopped(file, time.Since(started))
	return nil
}

func (c *cli) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			launcher := ffmpeg.New(launcherConfig(c.cfg), c.logger)
			devices, err := launcher.AudioDevices(cmd.Context())
			if err != nil {
				return err
			}
			c.out.Devices(devices)
			return nil
		},
	}
}

func (c *cli) probeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>...",
		Short: "Print the duration of media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			launcher := ffmpeg.New(launcherConfig(c.cfg), c.logger)
			for _, file := range args {
				secs, err := launcher.ProbeDuration(cmd.Context(), file)
				if err != nil {
					return err
				}
				c.out.Duration(file, secs)
			}
			return nil
		},
	}
}

func (c *cli) doctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that recording dependencies are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := c.doctor(cmd.Context())
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			c.out.Success("Ready to record")
			return nil
		},
	}
	c.addRecorderFlags(cmd.Flags())
	return cmd
}

// doctor prints one line per check and returns how many failed. Optional
// components are reported as warnings.
func (c *cli) doctor(ctx context.Context) int {
	cfg := c.cfg
	launcher := ffmpeg.New(launcherConfig(cfg), c.logger)
	failed := 0

	check := func(name string, err error, okDetail string) {
		if err != nil {
			failed++
			c.out.SetupCheck(name, false, err.Error())
			return
		}
		c.out.SetupCheck(name, true, okDetail)
	}

	check("ffmpeg", launcher.Check(), cfg.FFmpegPath)
	check("ffprobe", launcher.CheckProbe(), cfg.FFprobePath)

	if cfg.Microphone != "" {
		c.out.SetupCheck("microphone", true, cfg.Microphone+" (configured)")
	} else if mic, err := launcher.DefaultMicrophone(ctx); err != nil {
		check("microphone", err, "")
	} else {
		c.out.SetupCheck("microphone", true, mic)
	}

	check("data dir", checkWritable(cfg.SegmentsDir), cfg.SegmentsDir)
	check("output dir", checkWritable(cfg.CompilationsDir), cfg.CompilationsDir)

	if cliconfig.FileExists(cfg.RippleImage) {
		c.out.SetupCheck("ripple", true, cfg.RippleImage)
	} else {
		c.out.Warning(fmt.Sprintf("ripple image %s not found; trims will skip click markers", cfg.RippleImage))
	}

	if cfg.TrackerCommand == "" {
		c.out.Info("click capture disabled")
	} else if path, err := exec.LookPath(cfg.TrackerCommand); err != nil {
		c.out.Warning(fmt.Sprintf("tracker %q not found; clicks will not be recorded", cfg.TrackerCommand))
	} else {
		c.out.SetupCheck("tracker", true, path)
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if client, err := daemon.Connect(dialCtx, cfg.SocketPath); err != nil {
		c.out.Info("daemon not running at " + cfg.SocketPath)
	} else {
		client.Close()
		c.out.SetupCheck("daemon", true, cfg.SocketPath)
	}

	c.logger.Debug("doctor finished", log.Int("failed", failed))
	return failed
}

// checkWritable creates dir if needed and verifies a file can be written.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
