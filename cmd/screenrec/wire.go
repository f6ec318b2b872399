package main

import (
	"context"
	"fmt"

	"github.com/jvlcode/screen-recorder/internal/adapters/catalog"
	"github.com/jvlcode/screen-recorder/internal/adapters/ffmpeg"
	"github.com/jvlcode/screen-recorder/internal/adapters/fs"
	"github.com/jvlcode/screen-recorder/internal/adapters/tracker"
	"github.com/jvlcode/screen-recorder/internal/app"
	"github.com/jvlcode/screen-recorder/internal/cliconfig"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

func settingsFromConfig(cfg cliconfig.Config) app.Settings {
	return app.Settings{
		CompilationsDir: cfg.CompilationsDir,
		Microphone:      cfg.Microphone,
		CaptureFormat:   cfg.CaptureFormat,
		CaptureInput:    cfg.CaptureInput,
		AudioFormat:     cfg.AudioFormat,
		Framerate:       cfg.Framerate,
		Preset:          cfg.Preset,
		CRF:             cfg.CRF,
		AudioBitrate:    cfg.AudioBitrate,
		AudioSampleRate: cfg.AudioSampleRate,
		TrimPreset:      cfg.TrimPreset,
		TrimCRF:         cfg.TrimCRF,
		RippleImage:     cfg.RippleImage,
		RippleSize:      cfg.RippleSize,
		RippleDuration:  cfg.RippleDuration,
		ClickMergeDelay: cfg.ClickMergeDelay,
		ArchiveDelay:    cfg.ArchiveDelay,
		EdgeTrim:        cfg.EdgeTrim,
		ArchiveMaxBytes: cfg.ArchiveMaxBytes,
		AutoResume:      cfg.AutoResume,
	}
}

func launcherConfig(cfg cliconfig.Config) ffmpeg.Config {
	lc := ffmpeg.DefaultConfig()
	lc.FFmpegPath = cfg.FFmpegPath
	lc.FFprobePath = cfg.FFprobePath
	lc.AudioFormat = cfg.AudioFormat
	lc.StopTimeout = cfg.StopTimeout
	return lc
}

func trackerConfig(cfg cliconfig.Config) tracker.Config {
	return tracker.Config{
		Command: cfg.TrackerCommand,
		Args:    cfg.TrackerArgs,
	}
}

// recorder is a fully wired service and the resources it holds.
type recorder struct {
	svc      *app.Service
	launcher *ffmpeg.Launcher
	catalog  *catalog.Store
}

func (r *recorder) Close() error {
	return r.catalog.Close()
}

// newRecorder wires the service from cfg. Stale catalog reservations are
// cleared only when clearStale is set, since another process may hold them.
func newRecorder(ctx context.Context, cfg cliconfig.Config, logger log.Logger, emitter app.EventEmitter, clearStale bool) (*recorder, error) {
	store, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if clearStale {
		n, err := store.ClearStale(ctx)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("clear stale reservations: %w", err)
		}
		if n > 0 {
			logger.Warn("released stale compilation reservations", log.Int64("count", n))
		}
	}

	launcher := ffmpeg.New(launcherConfig(cfg), logger)
	clicks := fs.NewClickLog(cfg.ClickLog, logger)
	trk := tracker.New(trackerConfig(cfg), clicks, logger)
	trk.OnCombo(func(combo string) {
		logger.Info("key combo", log.String("combo", combo))
	})

	svc := app.NewService(app.Deps{
		Encoder: launcher,
		Store:   fs.NewSegmentStore(cfg.SegmentsDir, logger),
		Catalog: store,
		Tracker: trk,
		Clicks:  clicks,
		Logger:  logger,
		Emitter: emitter,
	}, settingsFromConfig(cfg))

	return &recorder{svc: svc, launcher: launcher, catalog: store}, nil
}

// exitWatcher signals when a recording ends without a stop request.
type exitWatcher struct {
	exited chan struct{}
}

func newExitWatcher() *exitWatcher {
	return &exitWatcher{exited: make(chan struct{}, 1)}
}

func (w *exitWatcher) OnStateChange(previous, current app.State, reason string) {
	if previous != app.StateRecording || current != app.StateIdle {
		return
	}
	select {
	case w.exited <- struct{}{}:
	default:
	}
}
