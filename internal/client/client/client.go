package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
)

// PushResult is the server's answer to a passage push. Duplicate is set
// when the server already had the passage; both outcomes are successes.
type PushResult struct {
	ServerID  int64
	Duplicate bool
	Match     *MatchResult
}

// RemoteViolation is the server's verdict on a pair. SpeedKmh is +Inf for
// zero travel time.
type RemoteViolation struct {
	ID               int64
	Type             common.ViolationType
	ThresholdMinutes float64
	SpeedKmh         float64
}

// MatchResult is an authoritative pairing.
type MatchResult struct {
	EntryID        int64
	ExitID         int64
	Plate          string
	SegmentID      int64
	TravelMinutes  float64
	Violation      *RemoteViolation
	AlertsResolved int
}

// Other returns the id of the pair member that is not own.
func (m *MatchResult) Other(own int64) int64 {
	if m.EntryID == own {
		return m.ExitID
	}
	return m.EntryID
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Login(ctx context.Context, rangerID int64, pin string) error
	// Resume restores a session from a saved refresh token.
	Resume(ctx context.Context, refreshToken string) error
	Logout()
	LoggedIn() bool
	// OnTokens registers a callback invoked with the new refresh token after
	// every login or rotation, so it can be persisted.
	OnTokens(fn func(refreshToken string))

	PushPassage(ctx context.Context, p *models.Passage) (*PushResult, error)
	ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.CachedEntry, error)
	Match(ctx context.Context, entryID, exitID int64) (*MatchResult, error)
	GetSegment(ctx context.Context, segmentID int64) (threshold.Bounds, error)
	PhotoUploadURL(ctx context.Context, clientID string) (key, url string, err error)
	AttachPhoto(ctx context.Context, clientID, key string) error
}
