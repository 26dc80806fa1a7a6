// Package passages stores the passages recorded on this device.
package passages

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
)

// Repository defines persistence operations on local passages.
type Repository interface {
	// Create inserts p. A second passage with the same client id returns
	// common.ErrDuplicate.
	Create(ctx context.Context, p *models.Passage) error

	// GetByClientID returns common.ErrorNotFound when absent.
	GetByClientID(ctx context.Context, clientID string) (*models.Passage, error)

	// List returns the most recent passages, newest first.
	List(ctx context.Context, limit int) ([]*models.Passage, error)

	// SetServerID records the id the server assigned on push.
	SetServerID(ctx context.Context, clientID string, serverID int64) error

	// SetAdvisoryMatch pairs the passage with a cached remote passage if it
	// is still unpaired, and reports whether it did.
	SetAdvisoryMatch(ctx context.Context, clientID string, remoteID int64) (bool, error)

	// ConfirmMatch stores the server's pairing, replacing any advisory one.
	ConfirmMatch(ctx context.Context, clientID string, remoteID int64) error

	// RejectMatch records that the server refused the advisory pairing.
	RejectMatch(ctx context.Context, clientID string) error

	// ListAwaitingConfirmation returns synced passages whose advisory match
	// the server has not ruled on yet.
	ListAwaitingConfirmation(ctx context.Context) ([]*models.Passage, error)

	SetPhoto(ctx context.Context, clientID, path, key string) error
}
