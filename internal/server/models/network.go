// Package models holds the server-side persistent records.
package models

import (
	"time"

	"github.com/dmitrijs2005/checkpost/internal/threshold"
)

type Segment struct {
	ID          int64
	Name        string
	DistanceKm  float64
	MaxSpeedKmh float64
	MinSpeedKmh float64
}

// Bounds returns the segment's travel-time bounds.
func (s *Segment) Bounds() threshold.Bounds {
	return threshold.Bounds{
		DistanceKm:  s.DistanceKm,
		MaxSpeedKmh: s.MaxSpeedKmh,
		MinSpeedKmh: s.MinSpeedKmh,
	}
}

type Checkpost struct {
	ID        int64
	Code      string
	Name      string
	SegmentID int64
}

type Ranger struct {
	ID          int64
	Name        string
	Phone       string
	CheckpostID int64
	Salt        []byte
	PinHash     []byte
	CreatedAt   time.Time
}
