// Package models defines the device-side data models of the checkpost agent.
package models

import (
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
)

// MatchState tracks the local passage's pairing with an opposite-checkpost
// passage.
type MatchState string

const (
	// MatchNone: no pair found yet.
	MatchNone MatchState = "none"
	// MatchAdvisory: paired on the device; the server has not confirmed.
	MatchAdvisory MatchState = "advisory"
	// MatchConfirmed: the server reconciled the pair.
	MatchConfirmed MatchState = "confirmed"
	// MatchRejected: the server refused the pair the device proposed.
	MatchRejected MatchState = "rejected"
)

// Passage is a vehicle sighting recorded on this device.
//
// ClientID is generated once at capture and is the idempotency key for
// every delivery attempt. ServerID stays nil until the server acknowledged
// the passage. MatchedRemoteID is the server id of the paired passage and,
// once set, never changes.
type Passage struct {
	ClientID        string
	ServerID        *int64
	Plate           string
	RawPlate        string
	VehicleType     common.VehicleType
	CheckpostID     int64
	SegmentID       int64
	RecordedAt      time.Time
	RangerID        int64
	PhotoPath       string
	PhotoKey        string
	Source          common.Source
	MatchedRemoteID *int64
	MatchState      MatchState
	CreatedAt       time.Time
}

// Synced reports whether the server acknowledged the passage.
func (p *Passage) Synced() bool {
	return p.ServerID != nil
}
