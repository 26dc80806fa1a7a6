// Package refreshtokens stores the long-lived ranger session tokens that
// devices trade for fresh access tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

// Repository issues, redeems and revokes refresh tokens. A token is
// single-use: Consume removes it in the same statement that reads it.
type Repository interface {
	Create(ctx context.Context, t *models.RefreshToken) error

	// Consume deletes token and returns what it carried, or
	// common.ErrorNotFound when it was never issued or already redeemed.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// RevokeRanger drops every session of rangerID.
	RevokeRanger(ctx context.Context, rangerID int64) (int64, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
