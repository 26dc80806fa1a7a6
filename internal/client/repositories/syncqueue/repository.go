// Package syncqueue persists the outbound delivery queue: one item per
// local passage, moving pending -> in_flight -> synced, or back to pending
// with one more attempt on failure, or to failed once the attempt ceiling
// is reached.
package syncqueue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
)

type Repository interface {
	// Enqueue adds a pending item. A second item for the same client id
	// returns common.ErrDuplicate.
	Enqueue(ctx context.Context, clientID string, now time.Time) error

	Get(ctx context.Context, clientID string) (*models.QueueItem, error)

	// ClaimPending atomically moves up to limit pending items, oldest first,
	// to in_flight and returns them.
	ClaimPending(ctx context.Context, limit int) ([]*models.QueueItem, error)

	// MarkSynced completes an in_flight item.
	MarkSynced(ctx context.Context, clientID string, now time.Time) error

	// MarkRetry records a failed attempt on an in_flight item. The item
	// returns to pending, or becomes failed when its attempt count reaches
	// maxAttempts. The new status is returned.
	MarkRetry(ctx context.Context, clientID string, now time.Time, reason string, maxAttempts int) (models.QueueStatus, error)

	// Release returns an in_flight item to pending without counting an attempt.
	Release(ctx context.Context, clientID string) error

	// ResetInFlight releases every in_flight item; used after a crash.
	ResetInFlight(ctx context.Context) (int64, error)

	// ListSMSEligible returns items that have not been sent by SMS and are
	// either failed or have been pending since before pendingBefore.
	ListSMSEligible(ctx context.Context, pendingBefore time.Time) ([]*models.QueueItem, error)

	MarkSMSSent(ctx context.Context, clientID string) error

	// Counts returns the number of items per status.
	Counts(ctx context.Context) (map[models.QueueStatus]int, error)
}
