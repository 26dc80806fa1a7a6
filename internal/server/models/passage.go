package models

import (
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
)

// Passage is one vehicle sighting at a checkpost. MatchedPassageID is set
// once, by the reconciler, and never changes afterwards.
type Passage struct {
	ID               int64
	ClientID         string
	Plate            string
	RawPlate         string
	VehicleType      common.VehicleType
	CheckpostID      int64
	SegmentID        int64
	RecordedAt       time.Time
	RangerID         *int64
	PhotoKey         string
	Source           common.Source
	MatchedPassageID *int64
	CreatedAt        time.Time
}

func (p *Passage) Matched() bool {
	return p.MatchedPassageID != nil
}

type Violation struct {
	ID               int64
	EntryPassageID   int64
	ExitPassageID    int64
	EntryRecordedAt  time.Time
	ExitRecordedAt   time.Time
	TravelMinutes    float64
	Type             common.ViolationType
	ThresholdMinutes float64
	SpeedKmh         float64
	DistanceKm       float64
	MaxSpeedKmh      float64
	MinSpeedKmh      float64
	CreatedAt        time.Time
}

type OverstayAlert struct {
	ID                  int64
	EntryPassageID      int64
	DeadlineAt          time.Time
	CreatedAt           time.Time
	ResolvedAt          *time.Time
	ResolvedByPassageID *int64
}

// MatchOutcome is the authoritative result of reconciling an entry/exit pair.
type MatchOutcome struct {
	EntryID        int64
	ExitID         int64
	Plate          string
	SegmentID      int64
	TravelMinutes  float64
	Violation      *Violation
	AlertsResolved int64
}
