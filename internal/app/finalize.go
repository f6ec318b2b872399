package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/internal/ports"
)

var compilationName = regexp.MustCompile(`^compilation_(\d+)\.mp4$`)

// Finalize concatenates every finished segment, oldest first, into the next
// numbered compilation and archives the inputs beside it. The segment being
// recorded is left out.
func (s *Service) Finalize(ctx context.Context) (domain.Compilation, error) {
	if err := s.beginEdit(); err != nil {
		return domain.Compilation{}, err
	}
	defer s.endEdit()

	settings := s.Settings()
	segs, err := s.store.List()
	if err != nil {
		return domain.Compilation{}, err
	}

	active := s.session.ActivePath()
	var inputs []string
	for _, seg := range segs {
		if active != "" && samePath(seg.Path, active) {
			s.logger.Info("finalize: skipping segment being recorded", ports.String("file", seg.Path))
			continue
		}
		inputs = append(inputs, seg.Path)
	}
	if len(inputs) == 0 {
		return domain.Compilation{}, domain.ErrNoSegments
	}

	concatInputs := inputs
	var intermediates []string
	if settings.EdgeTrim > 0 {
		concatInputs, intermediates, err = s.edgeTrim(ctx, inputs, settings.EdgeTrim)
		if err != nil {
			removeAll(intermediates)
			return domain.Compilation{}, err
		}
	}

	manifest, err := s.store.WriteManifest(concatInputs)
	if err != nil {
		removeAll(intermediates)
		return domain.Compilation{}, err
	}

	dir := settings.CompilationsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		removeAll(append(intermediates, manifest))
		return domain.Compilation{}, fmt.Errorf("create compilations dir: %w", err)
	}
	number, err := s.reserveNumber(ctx, dir)
	if err != nil {
		removeAll(append(intermediates, manifest))
		return domain.Compilation{}, err
	}

	out := filepath.Join(dir, fmt.Sprintf("compilation_%d.mp4", number))
	s.logger.Info("concatenating segments",
		ports.Int("compilation", number),
		ports.Int("segments", len(inputs)),
		ports.String("output", out),
	)

	if err := s.encoder.Run(ctx, concatArgs(manifest, out)); err != nil {
		removeAll(append(intermediates, manifest, out))
		s.releaseNumber(ctx, dir, number)
		return domain.Compilation{}, classify(err, domain.ErrConcatFailed, "concat")
	}

	if d := settings.ArchiveDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	archiveDir := filepath.Join(dir, fmt.Sprintf("compilation_%d", number))
	moved := make([]string, 0, 2*len(inputs)+1)
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		moved = append(moved, in, s.store.MetaPath(in))
		names = append(names, filepath.Base(in))
	}
	moved = append(moved, manifest)
	if err := s.store.Archive(archiveDir, moved); err != nil {
		// The compilation itself is complete; leftovers are picked up next time.
		s.logger.Error("archiving inputs failed", ports.String("dir", archiveDir), ports.Err(err))
	}
	removeAll(intermediates)

	comp := domain.Compilation{
		Number:     number,
		Path:       out,
		ArchiveDir: archiveDir,
		Segments:   names,
		CreatedAt:  s.now(),
	}
	if s.catalog != nil {
		if err := s.catalog.Commit(ctx, comp); err != nil {
			s.logger.Error("compilation not recorded in catalog", ports.Int("compilation", number), ports.Err(err))
		}
	}
	if settings.ArchiveMaxBytes > 0 {
		pruneArchives(dir, settings.ArchiveMaxBytes, number, s.logger)
	}

	s.logger.Info("compilation finished", ports.String("output", out), ports.Int("segments", len(inputs)))
	return comp, nil
}

// edgeTrim writes a cleaned_ copy of every input without its first and last
// edge of media. Inputs too short to trim are used as they are.
func (s *Service) edgeTrim(ctx context.Context, inputs []string, edge time.Duration) (out, created []string, err error) {
	cut := edge.Seconds()
	for _, in := range inputs {
		dur, err := s.encoder.ProbeDuration(ctx, in)
		if err != nil {
			return nil, created, err
		}
		if dur-cut <= cut {
			s.logger.Warn("segment too short for edge trim", ports.String("file", in), ports.Float64("duration", dur))
			out = append(out, in)
			continue
		}

		cleaned := filepath.Join(filepath.Dir(in), domain.CleanedPrefix+filepath.Base(in))
		if err := s.encoder.Run(ctx, edgeTrimArgs(in, cleaned, cut, dur-cut)); err != nil {
			_ = os.Remove(cleaned)
			return nil, created, classify(err, domain.ErrConcatFailed, "edge trim")
		}
		created = append(created, cleaned)
		out = append(out, cleaned)
	}
	return out, created, nil
}

func (s *Service) reserveNumber(ctx context.Context, dir string) (int, error) {
	floor, err := highestCompilation(dir)
	if err != nil {
		return 0, err
	}
	if s.catalog == nil {
		return floor + 1, nil
	}
	n, err := s.catalog.Reserve(ctx, dir, floor)
	if err != nil {
		return 0, fmt.Errorf("reserve compilation number: %w", err)
	}
	return n, nil
}

func (s *Service) releaseNumber(ctx context.Context, dir string, n int) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Release(ctx, dir, n); err != nil {
		s.logger.Warn("compilation number not released", ports.Int("compilation", n), ports.Err(err))
	}
}

// highestCompilation returns the largest n of compilation_<n>.mp4 in dir.
func highestCompilation(dir string) (int, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan compilations: %w", err)
	}
	highest := 0
	for _, e := range ents {
		m := compilationName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
