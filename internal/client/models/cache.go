package models

import (
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
)

// CachedEntry is a read-only shadow of a passage recorded at the opposite
// checkpost of the device's segment. MatchedClientID is the local passage
// it was paired with on this device.
type CachedEntry struct {
	ID              int64
	Plate           string
	VehicleType     common.VehicleType
	CheckpostID     int64
	SegmentID       int64
	RecordedAt      time.Time
	MatchedClientID *string
	FetchedAt       time.Time
}
