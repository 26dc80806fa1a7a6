// Package violations stores the verdicts shown to the ranger: advisory
// ones computed on the device and authoritative ones returned by the server.
package violations

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
)

type Repository interface {
	// CreateAdvisory inserts a locally computed verdict. A second verdict for
	// the same local passage returns common.ErrDuplicate.
	CreateAdvisory(ctx context.Context, v *models.Violation) error

	// SaveAuthoritative stores the server's verdict for a local passage,
	// replacing any advisory one.
	SaveAuthoritative(ctx context.Context, v *models.Violation) error

	// MarkStale flags the advisory verdict of a local passage as not
	// confirmed by the server and reports whether one existed.
	MarkStale(ctx context.Context, clientID string) (bool, error)

	GetByPassage(ctx context.Context, clientID string) (*models.Violation, error)

	// List returns verdicts newest first. Stale ones are included only when
	// includeStale is set.
	List(ctx context.Context, limit int, includeStale bool) ([]*models.Violation, error)
}
