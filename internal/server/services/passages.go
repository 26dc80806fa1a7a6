// Package services contains server-side business logic: passage ingest,
// authoritative reconciliation, overdue-alert scanning, ranger
// authentication, photo presigning and SMS ingest.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	IngestCreated   = "created"
	IngestDuplicate = "duplicate"

	defaultUnmatchedLimit = 100
	maxUnmatchedLimit     = 500
)

// IngestResult reports what happened to a pushed passage. Match is set when
// the new passage was paired with a stored one in the same transaction, or,
// for a duplicate, when the stored passage is already matched.
type IngestResult struct {
	Status  string
	Passage *models.Passage
	Match   *models.MatchOutcome
}

// PassageService accepts passages from devices and the SMS gateway.
type PassageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	reconciler  *Reconciler
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewPassageService(db *sql.DB, m repomanager.RepositoryManager, r *Reconciler, mt *metrics.Metrics, l logging.Logger) *PassageService {
	return &PassageService{
		db:          db,
		repomanager: m,
		reconciler:  r,
		metrics:     mt,
		logger:      l.With("module", "passages"),
	}
}

// Ingest stores p idempotently. A passage whose client_id, or whose
// (checkpost, plate, recorded time), is already stored is reported as a
// duplicate carrying the stored row and its committed match. A newly
// created passage is matched against the most recent unmatched
// opposite-checkpost passage of the same plate, if there is one.
//
// Ingests of one plate on one segment are serialized by a transaction-level
// lock, so two passages pushed at once from opposite checkposts always see
// each other.
func (s *PassageService) Ingest(ctx context.Context, p *models.Passage) (*IngestResult, error) {
	if err := s.normalize(ctx, p); err != nil {
		return nil, err
	}

	var result *IngestResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Passages(tx)

		if err := repo.LockPlate(ctx, p.SegmentID, p.Plate); err != nil {
			return fmt.Errorf("lock plate: %w", err)
		}

		err := repo.Create(ctx, p)
		if errors.Is(err, common.ErrDuplicate) {
			existing, err := repo.FindDuplicate(ctx, p)
			if err != nil {
				return fmt.Errorf("load duplicate: %w", err)
			}
			result = &IngestResult{Status: IngestDuplicate, Passage: existing}
			if existing.Matched() {
				result.Match, err = s.reconciler.MatchedOutcome(ctx, tx, existing)
				if err != nil {
					return err
				}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("create passage: %w", err)
		}

		result = &IngestResult{Status: IngestCreated, Passage: p}

		candidate, err := repo.FindCandidate(ctx, p)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find candidate: %w", err)
		}

		outcome, err := s.reconciler.matchTx(ctx, tx, candidate.ID, p.ID)
		switch {
		case err == nil:
			result.Match = outcome
		case errors.Is(err, common.ErrAlreadyMatched), errors.Is(err, common.ErrInvalidPair):
			// no writes happened; keep the passage unmatched
			s.logger.Warn(ctx, "inferred match skipped", "passage_id", p.ID, "candidate_id", candidate.ID, "err", err)
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Passages.WithLabelValues(result.Status).Inc()
	if result.Status == IngestCreated && result.Match != nil {
		s.reconciler.observe(nil)
	}
	s.logger.Info(ctx, "passage ingested", "client_id", p.ClientID, "status", result.Status,
		"passage_id", result.Passage.ID, "source", p.Source, "matched", result.Match != nil)
	return result, nil
}

// normalize validates p and brings it to stored form.
func (s *PassageService) normalize(ctx context.Context, p *models.Passage) error {
	if _, err := uuid.Parse(p.ClientID); err != nil {
		return fmt.Errorf("%w: client_id: %v", common.ErrInvalidPassage, err)
	}
	p.Plate = common.PlateKey(p.Plate)
	if p.Plate == "" {
		return fmt.Errorf("%w: empty plate", common.ErrInvalidPassage)
	}
	if !p.VehicleType.Valid() {
		p.VehicleType = common.VehicleOther
	}
	if p.RecordedAt.IsZero() {
		return fmt.Errorf("%w: missing capture time", common.ErrInvalidPassage)
	}
	p.RecordedAt = common.CaptureInstant(p.RecordedAt)
	if p.Source == "" {
		p.Source = common.SourceApp
	}

	checkpost, err := s.repomanager.Checkposts(s.db).Get(ctx, p.CheckpostID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: unknown checkpost %d", common.ErrInvalidPassage, p.CheckpostID)
	}
	if err != nil {
		return fmt.Errorf("load checkpost: %w", err)
	}
	if p.SegmentID == 0 {
		p.SegmentID = checkpost.SegmentID
	}
	if p.SegmentID != checkpost.SegmentID {
		return fmt.Errorf("%w: checkpost %d is not on segment %d", common.ErrInvalidPassage, p.CheckpostID, p.SegmentID)
	}
	return nil
}

// ListUnmatched returns unmatched passages of a segment recorded since the
// given instant at any checkpost other than excludeCheckpostID.
func (s *PassageService) ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.Passage, error) {
	if limit <= 0 {
		limit = defaultUnmatchedLimit
	}
	if limit > maxUnmatchedLimit {
		limit = maxUnmatchedLimit
	}
	return s.repomanager.Passages(s.db).ListUnmatched(ctx, segmentID, excludeCheckpostID, since, limit)
}

func (s *PassageService) GetSegment(ctx context.Context, id int64) (*models.Segment, error) {
	return s.repomanager.Segments(s.db).Get(ctx, id)
}

// AttachPhoto records the storage key of a passage's photo. Only passages
// recorded at checkpostID can be updated.
func (s *PassageService) AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty photo key", common.ErrInvalidPassage)
	}
	return s.repomanager.Passages(s.db).AttachPhoto(ctx, clientID, checkpostID, key)
}
