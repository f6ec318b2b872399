package ports

import (
	"context"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// ClickSource yields captured clicks. Times are epoch milliseconds.
type ClickSource interface {
	// Clicks returns clicks with fromMs <= TimeMs <= toMs, in capture order.
	Clicks(fromMs, toMs int64) ([]domain.Click, error)

	// Prune drops clicks older than beforeMs.
	Prune(beforeMs int64) error
}

// InputTracker supervises the external input listener.
type InputTracker interface {
	Start(ctx context.Context) error
	Stop()
}
