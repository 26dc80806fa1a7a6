package services

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
)

// segmentBounds returns the bounds last pulled from the server, or def when
// none were cached or the cached ones are unusable.
func segmentBounds(ctx context.Context, meta metadata.Repository, def threshold.Bounds) (threshold.Bounds, error) {
	var b threshold.Bounds
	ok, err := meta.GetJSON(ctx, metadata.KeySegmentBounds, &b)
	if err != nil {
		return def, err
	}
	if !ok || b.Validate() != nil {
		return def, nil
	}
	return b, nil
}
