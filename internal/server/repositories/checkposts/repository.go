// Package checkposts stores checkposts; each sits at one end of a segment.
package checkposts

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Checkpost) (*models.Checkpost, error)
	Get(ctx context.Context, id int64) (*models.Checkpost, error)
	GetByCode(ctx context.Context, code string) (*models.Checkpost, error)
}
