// Package metadata stores small device-local key/value settings: the
// ranger's session tokens, the last cached segment bounds and sync
// bookkeeping.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyRangerID      = "ranger_id"
	KeyRefreshToken  = "refresh_token"
	KeySegmentBounds = "segment_bounds"
	KeyLastPullAt    = "last_pull_at"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// GetJSON decodes the value under key into v. It reports false, with no
	// error, when the key is absent.
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}
