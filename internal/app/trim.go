package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/filtergraph"
	"github.com/jvlcode/screen-recorder/internal/ports"
)

// TrimSegment keeps [startSec, endSec] of a segment, replacing it in place.
// Clicks inside the window are re-based to the new start and, when the ripple
// image is available, drawn over the video. On failure the original segment
// and its sidecar are left untouched.
func (s *Service) TrimSegment(ctx context.Context, file string, startSec, endSec float64) (string, error) {
	if err := s.beginEdit(); err != nil {
		return "", err
	}
	path, err := s.trim(ctx, file, startSec, endSec)
	s.endEdit()
	if err != nil {
		return "", err
	}
	s.maybeResume(ctx, "trim")
	return path, nil
}

func (s *Service) trim(ctx context.Context, file string, startSec, endSec float64) (string, error) {
	path, err := normalizePath(file)
	if err != nil {
		return "", err
	}
	if err := s.checkEditable(path); err != nil {
		return "", err
	}

	meta, err := s.store.LoadMeta(path)
	if err != nil {
		return "", err
	}
	if math.IsNaN(startSec) || math.IsNaN(endSec) || startSec < 0 || startSec >= endSec {
		return "", fmt.Errorf("%w: start=%v end=%v", domain.ErrInvalidRange, startSec, endSec)
	}

	startMs := int64(math.Round(startSec * 1000))
	endMs := int64(math.Round(endSec * 1000))
	clicks := domain.WindowClicks(meta.Clicks, startMs, endMs)

	settings := s.Settings()
	graph := s.rippleGraph(clicks, settings)
	tmp := trimmedPath(path)

	s.logger.Info("trimming segment",
		ports.String("file", path),
		ports.Float64("start", startSec),
		ports.Float64("end", endSec),
		ports.Int("clicks", len(clicks)),
		ports.Bool("overlay", len(graph.Chains) > 0),
	)

	if err := s.encoder.Run(ctx, trimArgs(settings, path, tmp, startSec, endSec, settings.RippleImage, graph)); err != nil {
		_ = os.Remove(tmp)
		return "", classify(err, domain.ErrEncodeFailed, "trim")
	}

	meta.VideoFile = path
	meta.StartEpochMs += startMs
	meta.Clicks = clicks

	// The new sidecar is staged beside the temp video so a failed write
	// leaves the original pair untouched.
	tmpMeta := s.store.MetaPath(tmp)
	if err := s.store.WriteMeta(tmp, meta); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(tmpMeta)
		return "", err
	}

	// Rename over the original so the segment is never missing.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(tmpMeta)
		return "", fmt.Errorf("replace segment: %w", err)
	}
	if err := os.Rename(tmpMeta, s.store.MetaPath(path)); err != nil {
		s.logger.Error("trimmed segment kept its old sidecar",
			ports.String("file", path),
			ports.String("staged_meta", tmpMeta),
			ports.Err(err),
		)
		return "", fmt.Errorf("replace meta: %w", err)
	}

	s.logger.Info("segment trimmed", ports.String("file", path))
	return path, nil
}

func (s *Service) rippleGraph(clicks []domain.Click, settings Settings) filtergraph.Graph {
	if len(clicks) == 0 {
		return filtergraph.Graph{}
	}
	if settings.RippleImage == "" {
		s.logger.Warn("no ripple image configured, trimming without click markers")
		return filtergraph.Graph{}
	}
	if _, err := os.Stat(settings.RippleImage); err != nil {
		s.logger.Warn("ripple image unavailable, trimming without click markers",
			ports.String("image", settings.RippleImage), ports.Err(err))
		return filtergraph.Graph{}
	}
	graph, _ := filtergraph.Ripples(clicks, settings.rippleOptions())
	return graph
}

func trimmedPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + domain.TrimmedSuffix
}
