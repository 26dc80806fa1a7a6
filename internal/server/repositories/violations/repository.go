// Package violations stores authoritative violations, at most one per entry
// passage.
package violations

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type Repository interface {
	// Create inserts v unless a violation for the same entry already exists.
	// It returns the stored row and whether this call created it.
	Create(ctx context.Context, v *models.Violation) (*models.Violation, bool, error)

	GetByEntry(ctx context.Context, entryPassageID int64) (*models.Violation, error)
}
