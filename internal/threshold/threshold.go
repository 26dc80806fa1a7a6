// Package threshold classifies travel over a highway segment as speeding,
// overstay or neither, given the segment's distance and speed bounds.
//
// The calculator is pure: no I/O, no clock, deterministic for its inputs.
// Bounds are inclusive, so a travel time exactly equal to either limit is
// not a violation.
package threshold

import (
	"errors"
	"math"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
)

// ErrInvalidBounds is returned by Bounds.Validate for unusable segments.
var ErrInvalidBounds = errors.New("invalid segment bounds")

// Bounds describes a segment: its length and the allowed speed window.
type Bounds struct {
	DistanceKm  float64
	MaxSpeedKmh float64
	MinSpeedKmh float64
}

// Validate checks that the bounds describe a real segment.
func (b Bounds) Validate() error {
	if b.DistanceKm <= 0 || b.MaxSpeedKmh <= 0 || b.MinSpeedKmh <= 0 || b.MinSpeedKmh > b.MaxSpeedKmh {
		return ErrInvalidBounds
	}
	return nil
}

// MinTravelMinutes is the fastest legal traversal time.
func (b Bounds) MinTravelMinutes() float64 {
	return b.DistanceKm / b.MaxSpeedKmh * 60
}

// MaxTravelMinutes is the slowest acceptable traversal time.
func (b Bounds) MaxTravelMinutes() float64 {
	return b.DistanceKm / b.MinSpeedKmh * 60
}

// Classify runs Classify with b's values.
func (b Bounds) Classify(travel time.Duration) Result {
	return Classify(b.DistanceKm, travel, b.MaxSpeedKmh, b.MinSpeedKmh)
}

// Result is the outcome of a classification.
type Result struct {
	Classification   common.ViolationType
	ComputedSpeedKmh float64
	// ThresholdMinutes is the violated limit; zero when there is no violation.
	ThresholdMinutes float64
	TravelMinutes    float64
}

// Violation reports whether the result carries a classification.
func (r Result) Violation() bool {
	return r.Classification != common.ViolationNone
}

// Classify compares a travel duration against the segment limits.
// A negative duration is treated as its absolute value.
func Classify(distanceKm float64, travel time.Duration, maxSpeedKmh, minSpeedKmh float64) Result {
	if travel < 0 {
		travel = -travel
	}

	minTravel := distanceKm / maxSpeedKmh * 60
	maxTravel := distanceKm / minSpeedKmh * 60
	travelMinutes := travel.Minutes()

	res := Result{TravelMinutes: travelMinutes}

	if travelMinutes == 0 {
		res.ComputedSpeedKmh = math.Inf(1)
		res.Classification = common.ViolationSpeeding
		res.ThresholdMinutes = minTravel
		return res
	}

	res.ComputedSpeedKmh = distanceKm / (travelMinutes / 60)

	switch {
	case travelMinutes < minTravel:
		res.Classification = common.ViolationSpeeding
		res.ThresholdMinutes = minTravel
	case travelMinutes > maxTravel:
		res.Classification = common.ViolationOverstay
		res.ThresholdMinutes = maxTravel
	}

	return res
}
