package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_NoCandidate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, out := e.record(t)
	assert.False(t, out.Matched)
	assert.Nil(t, out.Violation)

	got, err := e.rm.Passages(e.db).GetByClientID(ctx, p.ClientID)
	require.NoError(t, err)
	assert.Equal(t, plate, got.Plate)
	assert.Equal(t, "ka 01-ab 1234", got.RawPlate)
	assert.Equal(t, ranger, got.RangerID)
	assert.Equal(t, ownCheckpost, got.CheckpostID)
	assert.Equal(t, segment, got.SegmentID)
	assert.Equal(t, t0, got.RecordedAt)
	assert.Equal(t, models.MatchNone, got.MatchState)

	item, err := e.rm.Queue(e.db).Get(ctx, p.ClientID)
	require.NoError(t, err)
	assert.Equal(t, models.QueuePending, item.Status)
	assert.Zero(t, item.Attempts)
}

func TestRecord_AdvisorySpeeding(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cacheRemote(t, 70, t0)
	e.clock.Set(t0.Add(45 * time.Minute))

	p, out := e.record(t)
	require.True(t, out.Matched)
	assert.Equal(t, int64(70), out.Remote.ID)
	require.NotNil(t, out.Violation)

	v, err := e.rm.Violations(e.db).GetByPassage(ctx, p.ClientID)
	require.NoError(t, err)
	assert.Equal(t, common.ViolationSpeeding, v.Type)
	assert.Equal(t, common.ProvenanceAdvisory, v.Provenance)
	assert.Equal(t, models.ViolationActive, v.Status)
	assert.InDelta(t, 75, v.ThresholdMinutes, 1e-9)
	assert.InDelta(t, 45, v.TravelMinutes, 1e-9)
	assert.InDelta(t, 66.67, v.SpeedKmh, 0.01)
	assert.Equal(t, t0, v.EntryAt)
	assert.Equal(t, t0.Add(45*time.Minute), v.ExitAt)
	assert.Equal(t, int64(70), v.RemotePassageID)

	got, err := e.rm.Passages(e.db).GetByClientID(ctx, p.ClientID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchAdvisory, got.MatchState)
	require.NotNil(t, got.MatchedRemoteID)
	assert.Equal(t, int64(70), *got.MatchedRemoteID)

	cached, err := e.rm.Cache(e.db).Get(ctx, 70)
	require.NoError(t, err)
	require.NotNil(t, cached.MatchedClientID)
	assert.Equal(t, p.ClientID, *cached.MatchedClientID)
}

func TestRecord_WithinBounds(t *testing.T) {
	e := newEnv(t)
	e.cacheRemote(t, 70, t0)
	e.clock.Set(t0.Add(100 * time.Minute))

	p, out := e.record(t)
	assert.True(t, out.Matched)
	assert.Nil(t, out.Violation)

	_, err := e.rm.Violations(e.db).GetByPassage(context.Background(), p.ClientID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRecord_ExitBeforeEntryIsReordered(t *testing.T) {
	e := newEnv(t)
	e.cacheRemote(t, 70, t0.Add(350*time.Minute))

	_, out := e.record(t)
	require.NotNil(t, out.Violation)
	assert.Equal(t, common.ViolationOverstay, out.Violation.Type)
	assert.Equal(t, t0, out.Violation.EntryAt)
	assert.InDelta(t, 300, out.Violation.ThresholdMinutes, 1e-9)
}

func TestRecord_ZeroTravel(t *testing.T) {
	e := newEnv(t)
	e.cacheRemote(t, 70, t0)

	p, out := e.record(t)
	require.NotNil(t, out.Violation)
	assert.Equal(t, common.ViolationSpeeding, out.Violation.Type)

	v, err := e.rm.Violations(e.db).GetByPassage(context.Background(), p.ClientID)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v.SpeedKmh, 1))
	assert.True(t, v.ZeroTravel())
}

func TestRecord_PicksMostRecentCandidate(t *testing.T) {
	e := newEnv(t)
	e.cacheRemote(t, 70, t0)
	e.cacheRemote(t, 71, t0.Add(10*time.Minute))
	e.clock.Set(t0.Add(200 * time.Minute))

	_, out := e.record(t)
	require.True(t, out.Matched)
	assert.Equal(t, int64(71), out.Remote.ID)
}

func TestRecord_CandidateMatchedOnce(t *testing.T) {
	e := newEnv(t)
	e.cacheRemote(t, 70, t0)
	e.clock.Set(t0.Add(100 * time.Minute))

	_, first := e.record(t)
	_, second := e.record(t)

	assert.True(t, first.Matched)
	assert.False(t, second.Matched)
}

func TestRecord_IgnoresOwnCheckpost(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.rm.Cache(e.db).Upsert(context.Background(), &models.CachedEntry{
		ID: 70, Plate: plate, VehicleType: common.VehicleCar, CheckpostID: ownCheckpost,
		SegmentID: segment, RecordedAt: t0, FetchedAt: t0,
	}))
	e.clock.Set(t0.Add(100 * time.Minute))

	_, out := e.record(t)
	assert.False(t, out.Matched)
}

func TestRecord_UsesCachedSegmentBounds(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.rm.Metadata(e.db).SetJSON(context.Background(), metadata.KeySegmentBounds,
		threshold.Bounds{DistanceKm: 100, MaxSpeedKmh: 40, MinSpeedKmh: 10}))
	e.cacheRemote(t, 70, t0)
	e.clock.Set(t0.Add(100 * time.Minute))

	_, out := e.record(t)
	require.NotNil(t, out.Violation)
	assert.Equal(t, common.ViolationSpeeding, out.Violation.Type)
	assert.InDelta(t, 150, out.Violation.ThresholdMinutes, 1e-9)
	assert.Equal(t, 100.0, out.Violation.Bounds.DistanceKm)
}

func TestRecord_TruncatesCaptureToSeconds(t *testing.T) {
	e := newEnv(t)

	p, _, err := e.recorder.Record(context.Background(), RecordInput{
		RawPlate:    plate,
		VehicleType: common.VehicleBus,
		CapturedAt:  t0.Add(1500 * time.Millisecond),
	})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Second), p.RecordedAt)
}

func TestRecord_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, _, err := e.recorder.Record(ctx, RecordInput{RawPlate: " -- ", VehicleType: common.VehicleCar})
	assert.ErrorIs(t, err, common.ErrInvalidPassage)

	_, _, err = e.recorder.Record(ctx, RecordInput{RawPlate: plate, VehicleType: "hovercraft"})
	assert.ErrorIs(t, err, common.ErrInvalidPassage)

	require.NoError(t, e.rm.Metadata(e.db).Delete(ctx, metadata.KeyRangerID))
	_, _, err = e.recorder.Record(ctx, RecordInput{RawPlate: plate, VehicleType: common.VehicleCar})
	assert.ErrorIs(t, err, ErrNoRanger)

	list, err := e.rm.Passages(e.db).List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecord_PublishesChanges(t *testing.T) {
	e := newEnv(t)
	passages, cancelP := e.hub.Subscribe(store.TopicPassages)
	defer cancelP()
	violations, cancelV := e.hub.Subscribe(store.TopicViolations)
	defer cancelV()

	e.record(t)
	select {
	case <-passages:
	default:
		t.Fatal("no passages notification")
	}
	select {
	case <-violations:
		t.Fatal("unexpected violations notification")
	default:
	}

	e.cacheRemote(t, 70, t0.Add(-10*time.Minute))
	e.record(t)
	select {
	case <-violations:
	default:
		t.Fatal("no violations notification")
	}
}
