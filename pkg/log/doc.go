// Package log provides the logging abstraction used across the recorder.
//
// Components depend on the Logger interface only. A zerolog-backed adapter
// is provided for the CLI and daemon, and a no-op logger for tests:
//
//	logger := log.NewConsole(os.Stderr, "info")
//	logger.Info("segment started", log.String("file", path))
//
// NewConsole writes human readable lines when the destination is a terminal
// and JSON lines otherwise, so daemon output can be collected by a supervisor.
package log
