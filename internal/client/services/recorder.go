package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/timex"
	"github.com/google/uuid"
)

// ErrNoRanger is returned when a passage is recorded before any ranger has
// signed in on the device.
var ErrNoRanger = errors.New("no ranger signed in on this device")

// RecordInput is what a ranger captures at the barrier. A zero CapturedAt
// means now.
type RecordInput struct {
	RawPlate    string
	VehicleType common.VehicleType
	CapturedAt  time.Time
	PhotoPath   string
}

// Recorder stores passages captured at this checkpost, queues them for
// delivery and runs local matching, all in one transaction.
type Recorder struct {
	db          *sql.DB
	rm          repomanager.RepositoryManager
	matcher     *Matcher
	hub         *store.Hub
	clock       timex.Clock
	log         logging.Logger
	checkpostID int64
	segmentID   int64
}

func NewRecorder(db *sql.DB, rm repomanager.RepositoryManager, matcher *Matcher, hub *store.Hub,
	clock timex.Clock, log logging.Logger, checkpostID, segmentID int64) *Recorder {
	return &Recorder{
		db:          db,
		rm:          rm,
		matcher:     matcher,
		hub:         hub,
		clock:       clock,
		log:         log.With("module", "recorder"),
		checkpostID: checkpostID,
		segmentID:   segmentID,
	}
}

// Record persists a new passage and returns it with the advisory match
// outcome.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (*models.Passage, *MatchOutcome, error) {
	plate := common.PlateKey(in.RawPlate)
	if plate == "" {
		return nil, nil, fmt.Errorf("%w: empty plate", common.ErrInvalidPassage)
	}
	if !in.VehicleType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown vehicle type %q", common.ErrInvalidPassage, in.VehicleType)
	}

	now := r.clock.Now()
	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	p := &models.Passage{
		ClientID:    uuid.NewString(),
		Plate:       plate,
		RawPlate:    strings.TrimSpace(in.RawPlate),
		VehicleType: in.VehicleType,
		CheckpostID: r.checkpostID,
		SegmentID:   r.segmentID,
		RecordedAt:  common.CaptureInstant(capturedAt),
		PhotoPath:   in.PhotoPath,
		Source:      common.SourceApp,
		MatchState:  models.MatchNone,
		CreatedAt:   now,
	}

	var outcome *MatchOutcome
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var rangerID int64
		ok, err := r.rm.Metadata(tx).GetJSON(ctx, metadata.KeyRangerID, &rangerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoRanger
		}
		p.RangerID = rangerID

		if err := r.rm.Passages(tx).Create(ctx, p); err != nil {
			return fmt.Errorf("store passage: %w", err)
		}
		if err := r.rm.Queue(tx).Enqueue(ctx, p.ClientID, now); err != nil {
			return fmt.Errorf("enqueue passage: %w", err)
		}

		outcome, err = r.matcher.Match(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	topics := []store.Topic{store.TopicPassages, store.TopicQueue}
	if outcome.Violation != nil {
		topics = append(topics, store.TopicViolations)
		r.log.Warn(ctx, "advisory violation", "client_id", p.ClientID, "plate", p.Plate,
			"type", outcome.Violation.Type, "travel_minutes", outcome.Violation.TravelMinutes)
	}
	r.hub.Publish(topics...)

	r.log.Info(ctx, "passage recorded", "client_id", p.ClientID, "plate", p.Plate, "matched", outcome.Matched)
	return p, outcome, nil
}
