package ports

import (
	"context"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// Notifier presents a scan result to the user.
type Notifier interface {
	// Notify renders the ranked candidates. The console implementation prints a table.
	Notify(ctx context.Context, result domain.ScanResult) error
}
