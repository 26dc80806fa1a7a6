// Package cache stores shadows of unmatched passages recorded at the
// opposite checkpost, pulled from the server for local matching.
package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
)

type Repository interface {
	// Upsert inserts or refreshes e. A local pairing already recorded on
	// the row is kept.
	Upsert(ctx context.Context, e *models.CachedEntry) error

	// Candidates returns unpaired entries with the given plate and segment
	// recorded at a checkpost other than excludeCheckpostID, most recently
	// recorded first.
	Candidates(ctx context.Context, plate string, segmentID, excludeCheckpostID int64) ([]*models.CachedEntry, error)

	// MarkMatched pairs the entry with a local passage if it is still
	// unpaired, and reports whether it did.
	MarkMatched(ctx context.Context, id int64, clientID string) (bool, error)

	Get(ctx context.Context, id int64) (*models.CachedEntry, error)

	// Purge drops entries recorded before cutoff, and entries whose local
	// pairing the server has already ruled on. It returns the number removed.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeMissing drops unpaired entries recorded at or after since that
	// were last fetched before fetchedBefore, i.e. entries a complete pull
	// of that window no longer returned. It returns the number removed.
	PurgeMissing(ctx context.Context, since, fetchedBefore time.Time) (int64, error)

	Count(ctx context.Context) (int, error)
}
