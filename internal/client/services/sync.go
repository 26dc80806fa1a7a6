package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/client/sms"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/smscodec"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"github.com/dmitrijs2005/checkpost/internal/timex"
	"golang.org/x/sync/errgroup"
)

// pushBatch caps the number of queue items claimed per cycle.
const pushBatch = 50

// Connectivity reports whether the server was reachable at the last probe.
type Connectivity interface {
	Online() bool
}

// SyncConfig holds the device identity and the sync engine's tunables.
type SyncConfig struct {
	CheckpostID      int64
	CheckpostCode    string
	SegmentID        int64
	RangerPhone      string
	DefaultBounds    threshold.Bounds
	Interval         time.Duration
	MaxAttempts      int
	SMSFallbackDelay time.Duration
	PullLookback     time.Duration
	PullLimit        int
	CacheRetention   time.Duration
}

// CycleReport summarizes one sync cycle. Skipped is set when another cycle
// was already running and this one did nothing.
type CycleReport struct {
	Skipped    bool
	Online     bool
	Pushed     int
	Duplicates int
	Retried    int
	Failed     int
	Pulled     int
	Purged     int64
	Confirmed  int
	Rejected   int
	SMSSent    int
}

// SyncEngine delivers queued passages to the server, refreshes the cache
// of opposite-checkpost passages, settles advisory matches with the server
// and falls back to SMS while the device is offline.
//
// At most one cycle runs at a time; a trigger observed while a cycle is
// running is dropped.
type SyncEngine struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	client client.Client
	sender sms.Sender
	net    Connectivity
	hub    *store.Hub
	clock  timex.Clock
	log    logging.Logger
	cfg    SyncConfig

	running atomic.Bool
	force   chan struct{}
}

// NewSyncEngine wires the engine. sender may be nil, in which case the SMS
// fallback is disabled.
func NewSyncEngine(db *sql.DB, rm repomanager.RepositoryManager, c client.Client, sender sms.Sender,
	net Connectivity, hub *store.Hub, clock timex.Clock, log logging.Logger, cfg SyncConfig) *SyncEngine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = common.MaxSyncAttempts
	}
	return &SyncEngine{
		db:     db,
		rm:     rm,
		client: c,
		sender: sender,
		net:    net,
		hub:    hub,
		clock:  clock,
		log:    log.With("module", "sync"),
		cfg:    cfg,
		force:  make(chan struct{}, 1),
	}
}

// Force asks the running loop for an immediate cycle. Repeated calls before
// the loop picks the request up collapse into one, and a call made while a
// cycle is running is dropped.
func (e *SyncEngine) Force() {
	if e.running.Load() {
		return
	}
	select {
	case e.force <- struct{}{}:
	default:
	}
}

// Recover returns queue items a previous process left in flight to pending.
func (e *SyncEngine) Recover(ctx context.Context) error {
	n, err := e.rm.Queue(e.db).ResetInFlight(ctx)
	if err != nil {
		return fmt.Errorf("reset in-flight items: %w", err)
	}
	if n > 0 {
		e.log.Info(ctx, "released in-flight items", "count", n)
		e.hub.Publish(store.TopicQueue)
	}
	return nil
}

// Run recovers the queue and then runs a cycle on every tick and on every
// Force until ctx is done.
func (e *SyncEngine) Run(ctx context.Context) error {
	if err := e.Recover(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-e.force:
		}

		if _, err := e.RunCycle(ctx); err != nil && ctx.Err() == nil {
			e.log.Error(ctx, "sync cycle failed", "error", err)
		}
	}
}

// RunCycle runs one sync cycle unless one is already in progress.
func (e *SyncEngine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		return CycleReport{Skipped: true}, nil
	}
	defer e.running.Store(false)

	var rep CycleReport
	rep.Online = e.net.Online() && e.client.LoggedIn()

	if rep.Online {
		var g errgroup.Group
		g.Go(func() error { return e.push(ctx, &rep) })
		g.Go(func() error { return e.pull(ctx, &rep) })
		if err := g.Wait(); err != nil {
			return rep, err
		}
		if err := e.propose(ctx, &rep); err != nil {
			return rep, err
		}
	}

	if err := e.smsFallback(ctx, !rep.Online, &rep); err != nil {
		return rep, err
	}

	e.log.Debug(ctx, "sync cycle done", "online", rep.Online, "pushed", rep.Pushed, "retried", rep.Retried,
		"failed", rep.Failed, "pulled", rep.Pulled, "confirmed", rep.Confirmed, "sms", rep.SMSSent)
	return rep, nil
}

// push delivers claimed queue items one by one. Transport failures are
// recorded on the item; only storage failures abort the cycle, and then
// every item not yet settled is handed back to pending.
func (e *SyncEngine) push(ctx context.Context, rep *CycleReport) error {
	queue := e.rm.Queue(e.db)

	items, err := queue.ClaimPending(ctx, pushBatch)
	if err != nil {
		return fmt.Errorf("claim pending: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	e.hub.Publish(store.TopicQueue)
	defer e.hub.Publish(store.TopicQueue, store.TopicPassages)

	for i, item := range items {
		if ctx.Err() != nil {
			// hand back what was claimed but never attempted
			e.release(ctx, items[i:])
			return nil
		}

		p, err := e.rm.Passages(e.db).GetByClientID(ctx, item.ClientID)
		if err != nil {
			e.release(ctx, items[i:])
			return fmt.Errorf("load passage %s: %w", item.ClientID, err)
		}

		res, err := e.client.PushPassage(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				e.release(ctx, items[i:])
				return nil
			}
			if err := e.retry(ctx, item, err, rep); err != nil {
				e.release(ctx, items[i:])
				return err
			}
			continue
		}

		err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := e.rm.Passages(tx).SetServerID(ctx, p.ClientID, res.ServerID); err != nil {
				return err
			}
			if err := e.rm.Queue(tx).MarkSynced(ctx, p.ClientID, e.clock.Now()); err != nil {
				return err
			}
			if res.Match == nil {
				return nil
			}
			p.ServerID = &res.ServerID
			return e.applyAuthoritative(ctx, tx, p, res.Match)
		})
		if err != nil {
			// the server already has it; the next push is answered as a duplicate
			e.release(ctx, items[i:])
			return fmt.Errorf("complete push %s: %w", p.ClientID, err)
		}

		rep.Pushed++
		if res.Duplicate {
			rep.Duplicates++
		}
		if res.Match != nil {
			rep.Confirmed++
			e.hub.Publish(store.TopicViolations)
		}
		e.log.Info(ctx, "passage synced", "client_id", p.ClientID, "server_id", res.ServerID,
			"duplicate", res.Duplicate, "matched", res.Match != nil)
	}
	return nil
}

func (e *SyncEngine) retry(ctx context.Context, item *models.QueueItem, cause error, rep *CycleReport) error {
	status, err := e.rm.Queue(e.db).MarkRetry(ctx, item.ClientID, e.clock.Now(), cause.Error(), e.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("record failed push %s: %w", item.ClientID, err)
	}
	if status == models.QueueFailed {
		rep.Failed++
		e.log.Warn(ctx, "passage parked after repeated failures", "client_id", item.ClientID,
			"attempts", item.Attempts+1, "error", cause)
		return nil
	}
	rep.Retried++
	e.log.Warn(ctx, "push failed, will retry", "client_id", item.ClientID, "attempts", item.Attempts+1, "error", cause)
	return nil
}

func (e *SyncEngine) release(ctx context.Context, items []*models.QueueItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := e.rm.Queue(e.db).Release(ctx, item.ClientID); err != nil {
			e.log.Error(ctx, "release queue item", "client_id", item.ClientID, "error", err)
		}
	}
}

// applyAuthoritative stores the server's verdict for p, replacing the
// advisory one. p.ServerID must be set.
func (e *SyncEngine) applyAuthoritative(ctx context.Context, tx dbx.DBTX, p *models.Passage, m *client.MatchResult) error {
	remoteID := m.Other(*p.ServerID)

	if err := e.rm.Passages(tx).ConfirmMatch(ctx, p.ClientID, remoteID); err != nil {
		return err
	}
	if _, err := e.rm.Cache(tx).MarkMatched(ctx, remoteID, p.ClientID); err != nil {
		return err
	}

	if m.Violation == nil {
		_, err := e.rm.Violations(tx).MarkStale(ctx, p.ClientID)
		return err
	}

	bounds, err := segmentBounds(ctx, e.rm.Metadata(tx), e.cfg.DefaultBounds)
	if err != nil {
		return err
	}

	travel := time.Duration(m.TravelMinutes * float64(time.Minute)).Round(time.Second)
	entryAt, exitAt := p.RecordedAt, p.RecordedAt.Add(travel)
	if m.ExitID == *p.ServerID {
		entryAt, exitAt = p.RecordedAt.Add(-travel), p.RecordedAt
	}

	serverViolationID := m.Violation.ID
	return e.rm.Violations(tx).SaveAuthoritative(ctx, &models.Violation{
		PassageClientID:   p.ClientID,
		RemotePassageID:   remoteID,
		ServerViolationID: &serverViolationID,
		Plate:             m.Plate,
		SegmentID:         m.SegmentID,
		EntryAt:           entryAt,
		ExitAt:            exitAt,
		TravelMinutes:     m.TravelMinutes,
		Type:              m.Violation.Type,
		ThresholdMinutes:  m.Violation.ThresholdMinutes,
		SpeedKmh:          m.Violation.SpeedKmh,
		Bounds:            bounds,
		Provenance:        common.ProvenanceAuthoritative,
		Status:            models.ViolationActive,
		CreatedAt:         e.clock.Now(),
	})
}

// pull refreshes the cache of unmatched passages recorded at the other end
// of the segment, and the segment's bounds. Transport failures are logged.
// When the server returned the whole lookback window, unpaired cached
// entries it no longer lists are dropped: they were matched elsewhere.
func (e *SyncEngine) pull(ctx context.Context, rep *CycleReport) error {
	now := e.clock.Now()
	since := now.Add(-e.cfg.PullLookback)

	entries, err := e.client.ListUnmatched(ctx, e.cfg.SegmentID, e.cfg.CheckpostID, since, e.cfg.PullLimit)
	if err != nil {
		e.log.Warn(ctx, "pull failed", "error", err)
		return nil
	}

	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cacheRepo := e.rm.Cache(tx)
		for _, entry := range entries {
			entry.FetchedAt = now
			if err := cacheRepo.Upsert(ctx, entry); err != nil {
				return err
			}
		}
		purged, err := cacheRepo.Purge(ctx, now.Add(-e.cfg.CacheRetention))
		if err != nil {
			return err
		}
		if e.cfg.PullLimit > 0 && len(entries) < e.cfg.PullLimit {
			gone, err := cacheRepo.PurgeMissing(ctx, since, now)
			if err != nil {
				return err
			}
			purged += gone
		}
		rep.Purged = purged
		return e.rm.Metadata(tx).SetJSON(ctx, metadata.KeyLastPullAt, now)
	})
	if err != nil {
		return fmt.Errorf("store pulled entries: %w", err)
	}
	rep.Pulled = len(entries)

	bounds, err := e.client.GetSegment(ctx, e.cfg.SegmentID)
	if err == nil {
		err = bounds.Validate()
	}
	if err != nil {
		e.log.Warn(ctx, "segment bounds refresh failed", "segment_id", e.cfg.SegmentID, "error", err)
		return nil
	}
	if err := e.rm.Metadata(e.db).SetJSON(ctx, metadata.KeySegmentBounds, bounds); err != nil {
		return fmt.Errorf("store segment bounds: %w", err)
	}
	return nil
}

// propose asks the server to confirm pairs matched on the device that the
// push response did not settle.
func (e *SyncEngine) propose(ctx context.Context, rep *CycleReport) error {
	awaiting, err := e.rm.Passages(e.db).ListAwaitingConfirmation(ctx)
	if err != nil {
		return fmt.Errorf("list awaiting confirmation: %w", err)
	}

	for _, p := range awaiting {
		m, err := e.client.Match(ctx, *p.MatchedRemoteID, *p.ServerID)
		switch {
		case err == nil:
			err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
				return e.applyAuthoritative(ctx, tx, p, m)
			})
			if err != nil {
				return fmt.Errorf("store confirmed match %s: %w", p.ClientID, err)
			}
			rep.Confirmed++
			e.log.Info(ctx, "match confirmed", "client_id", p.ClientID, "violation", m.Violation != nil)

		case errors.Is(err, client.ErrConflict):
			if err := e.settleConflict(ctx, p, rep); err != nil {
				return err
			}

		case errors.Is(err, client.ErrInvalidPair):
			if err := e.reject(ctx, p, err, rep); err != nil {
				return err
			}

		default:
			e.log.Warn(ctx, "match proposal failed", "client_id", p.ClientID, "error", err)
			if ctx.Err() != nil {
				return nil
			}
		}
	}

	if rep.Confirmed > 0 || rep.Rejected > 0 {
		e.hub.Publish(store.TopicPassages, store.TopicViolations)
	}
	return nil
}

// settleConflict handles a proposal the server refused because one side is
// already matched. Pushing p again returns the server's stored match for
// it, which may be the proposed pair itself. Only when p is still unmatched
// on the server is the advisory pairing rejected.
func (e *SyncEngine) settleConflict(ctx context.Context, p *models.Passage, rep *CycleReport) error {
	res, err := e.client.PushPassage(ctx, p)
	if err != nil {
		e.log.Warn(ctx, "match conflict left for next cycle", "client_id", p.ClientID, "error", err)
		return nil
	}
	if res.Match == nil {
		return e.reject(ctx, p, client.ErrConflict, rep)
	}

	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return e.applyAuthoritative(ctx, tx, p, res.Match)
	})
	if err != nil {
		return fmt.Errorf("store settled match %s: %w", p.ClientID, err)
	}
	rep.Confirmed++
	e.log.Info(ctx, "match settled from server", "client_id", p.ClientID,
		"remote_id", res.Match.Other(*p.ServerID), "proposed_remote_id", *p.MatchedRemoteID,
		"violation", res.Match.Violation != nil)
	return nil
}

func (e *SyncEngine) reject(ctx context.Context, p *models.Passage, cause error, rep *CycleReport) error {
	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := e.rm.Passages(tx).RejectMatch(ctx, p.ClientID); err != nil {
			return err
		}
		_, err := e.rm.Violations(tx).MarkStale(ctx, p.ClientID)
		return err
	})
	if err != nil {
		return fmt.Errorf("store rejected match %s: %w", p.ClientID, err)
	}
	rep.Rejected++
	e.log.Warn(ctx, "match rejected by server", "client_id", p.ClientID, "error", cause)
	return nil
}

// smsFallback sends parked items, and, when offline, items pending longer
// than the fallback delay. Payloads over the SMS budget are skipped.
func (e *SyncEngine) smsFallback(ctx context.Context, offline bool, rep *CycleReport) error {
	if e.sender == nil {
		return nil
	}

	var pendingBefore time.Time
	if offline {
		pendingBefore = e.clock.Now().Add(-e.cfg.SMSFallbackDelay)
	}

	items, err := e.rm.Queue(e.db).ListSMSEligible(ctx, pendingBefore)
	if err != nil {
		return fmt.Errorf("list sms eligible: %w", err)
	}

	suffix := smscodec.PhoneSuffix(e.cfg.RangerPhone)
	for _, item := range items {
		p, err := e.rm.Passages(e.db).GetByClientID(ctx, item.ClientID)
		if err != nil {
			return fmt.Errorf("load passage %s: %w", item.ClientID, err)
		}

		body, err := smscodec.Encode(smscodec.Message{
			CheckpostCode:     e.cfg.CheckpostCode,
			Plate:             p.Plate,
			VehicleType:       p.VehicleType,
			CapturedAt:        p.RecordedAt,
			RangerPhoneSuffix: suffix,
		})
		if err != nil {
			e.log.Warn(ctx, "passage cannot be sent by sms", "client_id", p.ClientID, "error", err)
			continue
		}

		if err := e.sender.Send(ctx, body); err != nil {
			e.log.Warn(ctx, "sms send failed", "client_id", p.ClientID, "error", err)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		if err := e.rm.Queue(e.db).MarkSMSSent(ctx, p.ClientID); err != nil {
			return fmt.Errorf("mark sms sent %s: %w", p.ClientID, err)
		}
		rep.SMSSent++
		e.log.Info(ctx, "passage sent by sms", "client_id", p.ClientID)
	}

	if rep.SMSSent > 0 {
		e.hub.Publish(store.TopicQueue)
	}
	return nil
}
