// Package alerts stores expected-overstay alerts: entries that have had no
// exit within the segment's maximum travel time.
package alerts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type Repository interface {
	// CreateOverdue raises one alert per unmatched passage whose deadline
	// (recorded_at + maximum travel time) is before now. Passages that
	// already have an alert are skipped. It returns the number created.
	CreateOverdue(ctx context.Context, now time.Time) (int64, error)

	// ResolveForEntry closes the open alert of an entry, if any, and returns
	// the number of alerts resolved.
	ResolveForEntry(ctx context.Context, entryPassageID, byPassageID int64) (int64, error)

	ListOpen(ctx context.Context, limit int) ([]*models.OverstayAlert, error)
}
