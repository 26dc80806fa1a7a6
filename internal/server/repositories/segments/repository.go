// Package segments stores highway segments and their speed bounds.
package segments

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Segment) (*models.Segment, error)
	Get(ctx context.Context, id int64) (*models.Segment, error)
}
