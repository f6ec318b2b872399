package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvlcode/screen-recorder/internal/configwatch"
	"github.com/jvlcode/screen-recorder/internal/daemon"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder daemon",
		Long: `Run the recorder in the foreground and accept commands on a Unix socket.

Changes to the config file are applied to the next recording or edit.
An active recording is stopped cleanly on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve()
		},
	}
	c.addRecorderFlags(cmd.Flags())
	return cmd
}

func (c *cli) serve() error {
	logger := c.logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reservations are only stale when no other daemon owns them.
	if client, err := daemon.Connect(ctx, c.cfg.SocketPath); err == nil {
		client.Close()
		return daemon.ErrDaemonRunning
	}

	rec, err := newRecorder(ctx, c.cfg, logger, nil, true)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := rec.launcher.Check(); err != nil {
		logger.Warn("ffmpeg not available; recordings will fail until it is installed", log.Err(err))
	}

	watcher := configwatch.New(configwatch.Config{Path: c.configFile()}, func() {
		cfg, err := c.resolve()
		if err != nil {
			logger.Error("config reload rejected", log.Err(err))
			return
		}
		rec.svc.Reconfigure(settingsFromConfig(cfg))
		logger.Info("config reloaded")
	}, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config file watching disabled", log.Err(err))
	} else {
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", log.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("daemon starting",
		log.String("socket", c.cfg.SocketPath),
		log.String("segments", c.cfg.SegmentsDir),
		log.String("compilations", c.cfg.CompilationsDir),
	)

	srv := daemon.NewServer(c.cfg.SocketPath, rec.svc, logger)
	serveErr := srv.Serve(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := rec.svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("stop recording on shutdown", log.Err(err))
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
