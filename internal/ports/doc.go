// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Encoder]: Launches and supervises the external encoder and prober
//   - [Process]: A running encoder child process
//   - [SegmentStore]: Segment videos, sidecars and concat manifests on disk
//   - [ClickSource]: Click events captured by the input tracker
//   - [InputTracker]: The external input listener process
//   - [CompilationCatalog]: Numbering and history of compilations
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters under internal/adapters implement them with ffmpeg, the file
// system and SQLite.
package ports
