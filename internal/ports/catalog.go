package ports

import (
	"context"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// CompilationCatalog hands out compilation numbers and records results.
type CompilationCatalog interface {
	// Reserve returns a number greater than floor and every number still
	// reserved in dir. Finished compilations are counted through floor, so
	// numbering restarts in an emptied or new directory. It is atomic with
	// respect to concurrent callers.
	Reserve(ctx context.Context, dir string, floor int) (int, error)

	// Release gives back a reservation whose concat failed.
	Release(ctx context.Context, dir string, number int) error

	// Commit marks a reserved number as a finished compilation.
	Commit(ctx context.Context, c domain.Compilation) error

	// List returns finished compilations, newest first.
	List(ctx context.Context) ([]domain.Compilation, error)
}
