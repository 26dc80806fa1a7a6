// Package rangers stores checkpost rangers and their PIN verifiers.
package rangers

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.Ranger) (*models.Ranger, error)
	Get(ctx context.Context, id int64) (*models.Ranger, error)

	// FindByPhoneSuffix returns the ranger of a checkpost whose phone number
	// ends with suffix.
	FindByPhoneSuffix(ctx context.Context, checkpostID int64, suffix string) (*models.Ranger, error)
}
