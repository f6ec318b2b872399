// Package domain contains the core entities and value objects for the recorder.
//
// This package has no dependencies on infrastructure concerns (processes, file
// system, logging) and contains only the rules shared by every layer.
//
// # Entities
//
//   - [SegmentMeta]: The sidecar stored next to every recorded segment
//   - [Click]: A pointer click captured while a segment was recording
//   - [Compilation]: A numbered concatenation of segments
//   - [ExitError]: A failed encoder invocation with its exit code and stderr
package domain
