package ports

import (
	"context"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// CandidateStore persists scan summaries and the candidates a user chose to watch.
type CandidateStore interface {
	// SaveScan records the summary of a completed scan.
	SaveScan(ctx context.Context, rec domain.ScanRecord) error

	// GetHistory returns the scans of a ticker in the given time range, newest first.
	// An empty ticker matches every ticker.
	GetHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.ScanRecord, error)

	// WatchCandidate stores a candidate as an opaque record.
	WatchCandidate(ctx context.Context, w domain.WatchedCandidate) error

	ListWatched(ctx context.Context, ticker string) ([]domain.WatchedCandidate, error)

	Unwatch(ctx context.Context, id string) error

	// Close closes the database connection cleanly.
	Close() error
}
