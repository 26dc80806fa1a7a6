// Package passages declares the server-side repository for recorded
// passages and provides its PostgreSQL implementation.
package passages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

// Repository defines persistence operations on passages.
type Repository interface {
	// LockPlate takes a lock on (segment, plate) held until the surrounding
	// transaction ends.
	LockPlate(ctx context.Context, segmentID int64, plate string) error

	// Create inserts p and fills its ID and CreatedAt. When p collides with
	// an existing passage (same client_id, or same checkpost/plate/time) it
	// returns common.ErrDuplicate and leaves the table unchanged.
	Create(ctx context.Context, p *models.Passage) error

	// FindDuplicate returns the stored passage that p collided with.
	FindDuplicate(ctx context.Context, p *models.Passage) (*models.Passage, error)

	GetByID(ctx context.Context, id int64) (*models.Passage, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Passage, error)

	// LockPair loads both passages with a row-level exclusive lock held
	// until the surrounding transaction ends. Rows are locked in id order.
	LockPair(ctx context.Context, a, b int64) ([]*models.Passage, error)

	// SetMatched sets matched_passage_id on id if it is still unset and
	// reports whether the row was updated.
	SetMatched(ctx context.Context, id, matchedID int64) (bool, error)

	// FindCandidate returns the most recent unmatched passage with the same
	// plate and segment recorded at another checkpost.
	FindCandidate(ctx context.Context, p *models.Passage) (*models.Passage, error)

	// ListUnmatched returns unmatched passages of a segment, newest first.
	ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.Passage, error)

	AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error
}
