package domain

import (
	"fmt"
	"time"
)

// Click is a pointer click. TimeMs is epoch milliseconds in the click log
// and milliseconds from segment start once stored in a sidecar.
type Click struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button string `json:"button,omitempty"`
	TimeMs int64  `json:"timeMs"`
}

// SegmentMeta is the sidecar persisted next to a segment video.
type SegmentMeta struct {
	VideoFile    string  `json:"videoFile"`
	StartEpochMs int64   `json:"startEpochMs"`
	Clicks       []Click `json:"clicks"`
}

// Validate reports ErrInvalidMeta when required fields are missing.
// A nil Clicks slice means the field was absent or null.
func (m SegmentMeta) Validate() error {
	if m.StartEpochMs == 0 {
		return fmt.Errorf("%w: startEpochMs missing", ErrInvalidMeta)
	}
	if m.Clicks == nil {
		return fmt.Errorf("%w: clicks missing", ErrInvalidMeta)
	}
	return nil
}

// WindowClicks keeps clicks whose TimeMs lies in [fromMs, toMs] and re-bases
// them so that fromMs becomes zero. The result is never nil.
func WindowClicks(clicks []Click, fromMs, toMs int64) []Click {
	out := make([]Click, 0, len(clicks))
	for _, c := range clicks {
		if c.TimeMs < fromMs || c.TimeMs > toMs {
			continue
		}
		c.TimeMs -= fromMs
		out = append(out, c)
	}
	return out
}

// Compilation is a finalized concatenation of segments.
type Compilation struct {
	Number     int       `json:"number"`
	Path       string    `json:"path"`
	ArchiveDir string    `json:"archiveDir"`
	Segments   []string  `json:"segments"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SegmentInfo describes a segment found on disk.
type SegmentInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	HasMeta bool      `json:"hasMeta"`
}

// File naming shared by the store and the edit operations.
const (
	SegmentExt    = ".mp4"
	SegmentPrefix = "record_"
	TrimmedSuffix = ".trimmed" + SegmentExt
	CleanedPrefix = "cleaned_"
	ManifestName  = "filelist.txt"
)
