package models

import (
	"math"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
)

// ViolationStatus tells whether a verdict is still believed.
type ViolationStatus string

const (
	ViolationActive ViolationStatus = "active"
	// ViolationStale marks an advisory verdict the server did not confirm.
	ViolationStale ViolationStatus = "stale"
)

// Violation is a verdict on a pair that involves one local passage.
// Advisory verdicts come from the device's matching engine, authoritative
// ones from the server; both share this shape and differ in Provenance.
//
// SpeedKmh is +Inf for a zero travel time.
type Violation struct {
	ID                int64
	PassageClientID   string
	RemotePassageID   int64
	ServerViolationID *int64
	Plate             string
	SegmentID         int64
	EntryAt           time.Time
	ExitAt            time.Time
	TravelMinutes     float64
	Type              common.ViolationType
	ThresholdMinutes  float64
	SpeedKmh          float64
	Bounds            threshold.Bounds
	Provenance        common.Provenance
	Status            ViolationStatus
	CreatedAt         time.Time
}

// ZeroTravel reports whether the pair was recorded at the same instant.
func (v *Violation) ZeroTravel() bool {
	return math.IsInf(v.SpeedKmh, 1)
}
