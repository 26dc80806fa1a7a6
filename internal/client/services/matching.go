package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"github.com/dmitrijs2005/checkpost/internal/timex"
)

// MatchOutcome is the advisory result of local matching. Violation is nil
// when the pair is within bounds.
type MatchOutcome struct {
	Matched   bool
	Remote    *models.CachedEntry
	Violation *models.Violation
}

// Matcher pairs a freshly recorded passage with a cached passage from the
// opposite checkpost of the same segment and classifies the travel time.
// Its verdicts are advisory; the server's reconciliation supersedes them.
type Matcher struct {
	rm       repomanager.RepositoryManager
	defaults threshold.Bounds
	clock    timex.Clock
}

func NewMatcher(rm repomanager.RepositoryManager, defaults threshold.Bounds, clock timex.Clock) *Matcher {
	return &Matcher{rm: rm, defaults: defaults, clock: clock}
}

// Match must run inside the transaction that stored p, so the candidate
// lookup and the mark-as-matched happen as one unit.
func (m *Matcher) Match(ctx context.Context, tx dbx.DBTX, p *models.Passage) (*MatchOutcome, error) {
	cacheRepo := m.rm.Cache(tx)

	candidates, err := cacheRepo.Candidates(ctx, p.Plate, p.SegmentID, p.CheckpostID)
	if err != nil {
		return nil, fmt.Errorf("match candidates: %w", err)
	}

	var remote *models.CachedEntry
	for _, c := range candidates {
		ok, err := cacheRepo.MarkMatched(ctx, c.ID, p.ClientID)
		if err != nil {
			return nil, fmt.Errorf("mark cached entry %d: %w", c.ID, err)
		}
		if ok {
			remote = c
			break
		}
	}
	if remote == nil {
		return &MatchOutcome{}, nil
	}

	paired, err := m.rm.Passages(tx).SetAdvisoryMatch(ctx, p.ClientID, remote.ID)
	if err != nil {
		return nil, fmt.Errorf("pair passage: %w", err)
	}
	if !paired {
		return nil, fmt.Errorf("pair passage %s: %w", p.ClientID, common.ErrAlreadyMatched)
	}
	p.MatchedRemoteID = &remote.ID
	p.MatchState = models.MatchAdvisory

	bounds, err := segmentBounds(ctx, m.rm.Metadata(tx), m.defaults)
	if err != nil {
		return nil, err
	}

	entryAt, exitAt := remote.RecordedAt, p.RecordedAt
	if exitAt.Before(entryAt) {
		entryAt, exitAt = exitAt, entryAt
	}

	res := bounds.Classify(exitAt.Sub(entryAt))
	out := &MatchOutcome{Matched: true, Remote: remote}
	if !res.Violation() {
		return out, nil
	}

	v := &models.Violation{
		PassageClientID:  p.ClientID,
		RemotePassageID:  remote.ID,
		Plate:            p.Plate,
		SegmentID:        p.SegmentID,
		EntryAt:          entryAt,
		ExitAt:           exitAt,
		TravelMinutes:    res.TravelMinutes,
		Type:             res.Classification,
		ThresholdMinutes: res.ThresholdMinutes,
		SpeedKmh:         res.ComputedSpeedKmh,
		Bounds:           bounds,
		Provenance:       common.ProvenanceAdvisory,
		Status:           models.ViolationActive,
		CreatedAt:        m.clock.Now(),
	}
	if err := m.rm.Violations(tx).CreateAdvisory(ctx, v); err != nil {
		return nil, fmt.Errorf("store advisory violation: %w", err)
	}
	out.Violation = v
	return out, nil
}
