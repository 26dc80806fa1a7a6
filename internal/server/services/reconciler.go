package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
)

// errLostUpdate means a conditional match update found the row already
// matched even though it was unmatched under lock. The transaction must be
// rolled back.
var errLostUpdate = errors.New("match reference changed under lock")

// Reconciler is the authoritative matcher. It pairs two passages exactly
// once, using row locks inside a single transaction.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, mt *metrics.Metrics, l logging.Logger) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		metrics:     mt,
		logger:      l.With("module", "reconciler"),
	}
}

// Match reconciles passages a and b in their own transaction. Either order
// is accepted: the earlier recorded passage becomes the entry.
//
// Errors: common.ErrorNotFound if either passage is missing,
// common.ErrInvalidPair for a malformed pair, common.ErrAlreadyMatched if
// either side is already matched (the loser of a race gets this).
func (r *Reconciler) Match(ctx context.Context, a, b int64) (*models.MatchOutcome, error) {
	var out *models.MatchOutcome

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = r.matchTx(ctx, tx, a, b)
		return err
	})
	if errors.Is(err, errLostUpdate) {
		err = common.ErrAlreadyMatched
	}
	r.observe(err)
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "passages matched", "entry_id", out.EntryID, "exit_id", out.ExitID,
		"travel_minutes", out.TravelMinutes, "violation", out.Violation != nil, "alerts_resolved", out.AlertsResolved)
	return out, nil
}

// matchTx runs the lock-check-write sequence on tx. Callers own the
// transaction and must roll back on any error.
func (r *Reconciler) matchTx(ctx context.Context, tx dbx.DBTX, a, b int64) (*models.MatchOutcome, error) {
	if a == b {
		return nil, fmt.Errorf("%w: passage cannot match itself", common.ErrInvalidPair)
	}

	passages := r.repomanager.Passages(tx)

	pair, err := passages.LockPair(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("lock passages: %w", err)
	}
	if len(pair) != 2 {
		return nil, common.ErrorNotFound
	}

	if err := validatePair(pair[0], pair[1]); err != nil {
		return nil, err
	}
	if pair[0].Matched() || pair[1].Matched() {
		return nil, common.ErrAlreadyMatched
	}

	entry, exit := orderPair(pair[0], pair[1])

	segment, err := r.repomanager.Segments(tx).Get(ctx, entry.SegmentID)
	if err != nil {
		return nil, fmt.Errorf("load segment %d: %w", entry.SegmentID, err)
	}
	result := segment.Bounds().Classify(exit.RecordedAt.Sub(entry.RecordedAt))

	for _, link := range [][2]int64{{entry.ID, exit.ID}, {exit.ID, entry.ID}} {
		ok, err := passages.SetMatched(ctx, link[0], link[1])
		if err != nil {
			return nil, fmt.Errorf("set match: %w", err)
		}
		if !ok {
			return nil, errLostUpdate
		}
	}

	out := &models.MatchOutcome{
		EntryID:       entry.ID,
		ExitID:        exit.ID,
		Plate:         entry.Plate,
		SegmentID:     entry.SegmentID,
		TravelMinutes: result.TravelMinutes,
	}

	if result.Violation() {
		v, created, err := r.repomanager.Violations(tx).Create(ctx, &models.Violation{
			EntryPassageID:   entry.ID,
			ExitPassageID:    exit.ID,
			EntryRecordedAt:  entry.RecordedAt,
			ExitRecordedAt:   exit.RecordedAt,
			TravelMinutes:    result.TravelMinutes,
			Type:             result.Classification,
			ThresholdMinutes: result.ThresholdMinutes,
			SpeedKmh:         result.ComputedSpeedKmh,
			DistanceKm:       segment.DistanceKm,
			MaxSpeedKmh:      segment.MaxSpeedKmh,
			MinSpeedKmh:      segment.MinSpeedKmh,
		})
		if err != nil {
			return nil, fmt.Errorf("record violation: %w", err)
		}
		if created {
			r.metrics.Violations.WithLabelValues(string(v.Type)).Inc()
		}
		out.Violation = v
	}

	resolved, err := r.repomanager.Alerts(tx).ResolveForEntry(ctx, entry.ID, exit.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve alerts: %w", err)
	}
	out.AlertsResolved = resolved
	r.metrics.AlertsResolved.Add(float64(resolved))

	return out, nil
}

// MatchedOutcome rebuilds the committed outcome of p's match from the stored
// pair and its violation, if any. p must be matched.
func (r *Reconciler) MatchedOutcome(ctx context.Context, tx dbx.DBTX, p *models.Passage) (*models.MatchOutcome, error) {
	partner, err := r.repomanager.Passages(tx).GetByID(ctx, *p.MatchedPassageID)
	if err != nil {
		return nil, fmt.Errorf("load matched passage %d: %w", *p.MatchedPassageID, err)
	}

	entry, exit := orderPair(p, partner)
	out := &models.MatchOutcome{
		EntryID:       entry.ID,
		ExitID:        exit.ID,
		Plate:         entry.Plate,
		SegmentID:     entry.SegmentID,
		TravelMinutes: exit.RecordedAt.Sub(entry.RecordedAt).Minutes(),
	}

	v, err := r.repomanager.Violations(tx).GetByEntry(ctx, entry.ID)
	switch {
	case err == nil:
		out.Violation = v
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, fmt.Errorf("load violation: %w", err)
	}
	return out, nil
}

func (r *Reconciler) observe(err error) {
	outcome := "matched"
	switch {
	case err == nil:
	case errors.Is(err, common.ErrAlreadyMatched):
		outcome = "conflict"
	case errors.Is(err, common.ErrInvalidPair), errors.Is(err, common.ErrorNotFound):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	r.metrics.Matches.WithLabelValues(outcome).Inc()
}

// validatePair rejects pairs that can never describe one trip.
func validatePair(p, q *models.Passage) error {
	switch {
	case p.Plate != q.Plate:
		return fmt.Errorf("%w: plates differ", common.ErrInvalidPair)
	case p.SegmentID != q.SegmentID:
		return fmt.Errorf("%w: segments differ", common.ErrInvalidPair)
	case p.CheckpostID == q.CheckpostID:
		return fmt.Errorf("%w: same checkpost", common.ErrInvalidPair)
	}
	return nil
}

// orderPair returns (entry, exit) by recorded time, falling back to id for
// identical timestamps.
func orderPair(p, q *models.Passage) (*models.Passage, *models.Passage) {
	if q.RecordedAt.Before(p.RecordedAt) || (q.RecordedAt.Equal(p.RecordedAt) && q.ID < p.ID) {
		return q, p
	}
	return p, q
}
