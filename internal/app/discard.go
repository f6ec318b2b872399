package app

import (
	"context"

	"github.com/jvlcode/screen-recorder/internal/ports"
)

// DiscardSegment deletes a segment and its sidecar and returns the path.
// Discarding a segment that is already gone succeeds.
func (s *Service) DiscardSegment(ctx context.Context, file string) (string, error) {
	if err := s.beginEdit(); err != nil {
		return "", err
	}
	path, err := s.discard(file)
	s.endEdit()
	if err != nil {
		return "", err
	}
	s.maybeResume(ctx, "discard")
	return path, nil
}

func (s *Service) discard(file string) (string, error) {
	path, err := normalizePath(file)
	if err != nil {
		return "", err
	}
	if err := s.checkEditable(path); err != nil {
		return "", err
	}
	if err := s.store.Discard(path); err != nil {
		s.logger.Error("discard failed", ports.String("file", path), ports.Err(err))
		return "", err
	}
	return path, nil
}
