package ports

import (
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// SegmentStore manages segment videos and their sidecars.
type SegmentStore interface {
	// Dir returns the segments directory.
	Dir() string

	// NewSegment allocates a unique, not yet existing segment path.
	NewSegment(now time.Time) (string, error)

	// MetaPath returns the sidecar path for a segment.
	MetaPath(video string) string

	// LoadMeta reads and validates a sidecar.
	LoadMeta(video string) (domain.SegmentMeta, error)

	// WriteMeta persists a sidecar atomically.
	WriteMeta(video string, meta domain.SegmentMeta) error

	// List returns recorded segments ordered by modification time, oldest first.
	List() ([]domain.SegmentInfo, error)

	// Discard removes a segment and its sidecar. Missing files are not errors.
	Discard(video string) error

	// WriteManifest writes a concat list for paths and returns its location.
	WriteManifest(paths []string) (string, error)

	// Archive moves files into dir, creating it if needed.
	Archive(dir string, paths []string) error
}
