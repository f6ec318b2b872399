// Package fs implements segment, sidecar and click storage on the local file system.
package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// SegmentStore implements ports.SegmentStore over a single directory.
type SegmentStore struct {
	dir    string
	logger log.Logger
}

// NewSegmentStore creates a store rooted at dir.
func NewSegmentStore(dir string, logger log.Logger) *SegmentStore {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &SegmentStore{dir: dir, logger: logger.With(log.String("component", "segments"))}
}

func (s *SegmentStore) Dir() string {
	return s.dir
}

// NewSegment returns record_<epochMs>_<uuid>.mp4 inside the store directory.
func (s *SegmentStore) NewSegment(now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create segments dir: %w", err)
	}
	name := domain.SegmentPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + uuid.NewString() + domain.SegmentExt
	return filepath.Join(s.dir, name), nil
}

// MetaPath swaps the video extension for .json.
func (s *SegmentStore) MetaPath(video string) string {
	return strings.TrimSuffix(video, filepath.Ext(video)) + ".json"
}

func (s *SegmentStore) LoadMeta(video string) (domain.SegmentMeta, error) {
	path := s.MetaPath(video)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SegmentMeta{}, fmt.Errorf("%w: %s", domain.ErrMetaMissing, path)
		}
		return domain.SegmentMeta{}, fmt.Errorf("read meta: %w", err)
	}

	var meta domain.SegmentMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.SegmentMeta{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidMeta, path, err)
	}
	if err := meta.Validate(); err != nil {
		return domain.SegmentMeta{}, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

func (s *SegmentStore) WriteMeta(video string, meta domain.SegmentMeta) error {
	if meta.Clicks == nil {
		meta.Clicks = []domain.Click{}
	}
	if err := writeJSONAtomic(s.MetaPath(video), meta); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// List returns segment videos sorted by modification time, oldest first.
// Trim temporaries and edge-trim intermediates are skipped.
func (s *SegmentStore) List() ([]domain.SegmentInfo, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list segments: %w", err)
	}

	var segs []domain.SegmentInfo
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !isSegmentName(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		path := filepath.Join(s.dir, name)
		_, metaErr := os.Stat(s.MetaPath(path))
		segs = append(segs, domain.SegmentInfo{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			HasMeta: metaErr == nil,
		})
	}

	sort.SliceStable(segs, func(i, j int) bool {
		if segs[i].ModTime.Equal(segs[j].ModTime) {
			return segs[i].Path < segs[j].Path
		}
		return segs[i].ModTime.Before(segs[j].ModTime)
	})
	return segs, nil
}

func isSegmentName(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), domain.SegmentExt) {
		return false
	}
	if strings.HasSuffix(name, domain.TrimmedSuffix) || strings.HasPrefix(name, domain.CleanedPrefix) {
		return false
	}
	return true
}

// Discard deletes the video and its sidecar. Either may already be gone.
func (s *SegmentStore) Discard(video string) error {
	if err := os.Remove(video); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("remove segment: %w", err)
		}
		s.logger.Warn("discard: video already gone", log.String("file", video))
	}
	if err := os.Remove(s.MetaPath(video)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("discard: sidecar not removed", log.String("file", video), log.Err(err))
	}
	s.logger.Info("segment discarded", log.String("file", video))
	return nil
}

// WriteManifest writes the concat demuxer list into the store directory.
func (s *SegmentStore) WriteManifest(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("manifest path: %w", err)
		}
		b.WriteString("file '")
		b.WriteString(escapeConcatPath(filepath.ToSlash(abs)))
		b.WriteString("'\n")
	}

	path := filepath.Join(s.dir, domain.ManifestName)
	if err := writeFileAtomic(path, []byte(b.String())); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// escapeConcatPath closes the quote, emits an escaped quote and reopens it,
// which is how the concat demuxer expects a literal single quote.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

// Archive moves paths into dir. Files that no longer exist are skipped.
func (s *SegmentStore) Archive(dir string, paths []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	var errs []error
	for _, p := range paths {
		dst := filepath.Join(dir, filepath.Base(p))
		if err := os.Rename(p, dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = append(errs, fmt.Errorf("move %s: %w", filepath.Base(p), err))
			continue
		}
		s.logger.Debug("archived", log.String("file", p), log.String("dir", dir))
	}
	return errors.Join(errs...)
}

var _ ports.SegmentStore = (*SegmentStore)(nil)
