package syncqueue

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func setupDB(t *testing.T, clientIDs ...string) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, id := range clientIDs {
		_, err := db.Exec(`INSERT INTO passages (client_id, plate, vehicle_type, checkpost_id, segment_id,
			recorded_at, ranger_id, created_at) VALUES (?, 'KA01', 'car', 1, 1, 0, 11, 0)`, id)
		require.NoError(t, err)
	}
	return db
}

func TestEnqueue_OncePerPassage(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "a", t0))
	assert.ErrorIs(t, r.Enqueue(ctx, "a", t0), common.ErrDuplicate)

	it, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.QueuePending, it.Status)
	assert.Zero(t, it.Attempts)
	assert.Nil(t, it.LastAttemptAt)
	assert.False(t, it.SMSSent)
	assert.Equal(t, t0, it.CreatedAt)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClaimPending_OldestFirstAndOnlyOnce(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a", "b", "c"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "b", t0.Add(time.Minute)))
	require.NoError(t, r.Enqueue(ctx, "a", t0))
	require.NoError(t, r.Enqueue(ctx, "c", t0.Add(2*time.Minute)))

	got, err := r.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ClientID, got[1].ClientID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	for _, it := range got {
		assert.Equal(t, models.QueueInFlight, it.Status)
	}

	got, err = r.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ClientID)

	got, err = r.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStateMachine_SuccessPath(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "a", t0))
	assert.ErrorIs(t, r.MarkSynced(ctx, "a", t0), common.ErrorNotFound, "pending items cannot jump to synced")

	_, err := r.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, r.MarkSynced(ctx, "a", t0.Add(time.Second)))

	it, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.QueueSynced, it.Status)
	require.NotNil(t, it.LastAttemptAt)
	assert.Equal(t, t0.Add(time.Second), *it.LastAttemptAt)
}

func TestStateMachine_FailsOnFifthAttempt(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "a", t0))

	for attempt := 1; attempt <= 5; attempt++ {
		claimed, err := r.ClaimPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1, "attempt %d", attempt)

		status, err := r.MarkRetry(ctx, "a", t0.Add(time.Duration(attempt)*time.Minute), "unavailable", common.MaxSyncAttempts)
		require.NoError(t, err)

		it, err := r.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, attempt, it.Attempts)
		assert.Equal(t, "unavailable", it.LastError)

		if attempt < 5 {
			assert.Equal(t, models.QueuePending, status, "attempt %d", attempt)
		} else {
			assert.Equal(t, models.QueueFailed, status)
		}
	}

	claimed, err := r.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed, "failed items are not retried")
}

func TestMarkRetry_RequiresInFlight(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "a", t0))
	_, err := r.MarkRetry(ctx, "a", t0, "x", 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReleaseAndResetInFlight(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a", "b"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "a", t0))
	require.NoError(t, r.Enqueue(ctx, "b", t0))
	_, err := r.ClaimPending(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, r.Release(ctx, "a"))
	n, err := r.ResetInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, id := range []string{"a", "b"} {
		it, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.QueuePending, it.Status)
		assert.Zero(t, it.Attempts, "recovery does not count attempts")
	}
}

func TestSMSEligibility(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "old", "fresh", "failed", "sent", "synced"))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, "old", t0))
	require.NoError(t, r.Enqueue(ctx, "fresh", t0.Add(10*time.Minute)))
	require.NoError(t, r.Enqueue(ctx, "failed", t0.Add(10*time.Minute)))
	require.NoError(t, r.Enqueue(ctx, "sent", t0))
	require.NoError(t, r.Enqueue(ctx, "synced", t0))
	require.NoError(t, r.MarkSMSSent(ctx, "sent"))

	_, err := r.ClaimPending(ctx, 10)
	require.NoError(t, err)
	for _, id := range []string{"old", "fresh", "sent"} {
		require.NoError(t, r.Release(ctx, id))
	}
	require.NoError(t, r.MarkSynced(ctx, "synced", t0))
	_, err = r.MarkRetry(ctx, "failed", t0, "x", 1)
	require.NoError(t, err)

	got, err := r.ListSMSEligible(ctx, t0.Add(5*time.Minute))
	require.NoError(t, err)

	var ids []string
	for _, it := range got {
		ids = append(ids, it.ClientID)
	}
	assert.Equal(t, []string{"old", "failed"}, ids)

	require.NoError(t, r.MarkSMSSent(ctx, "old"))
	got, err = r.ListSMSEligible(ctx, t0.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "failed", got[0].ClientID)
}

func TestCounts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t, "a", "b", "c"))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Enqueue(ctx, id, t0))
	}
	_, err := r.ClaimPending(ctx, 1)
	require.NoError(t, err)

	counts, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.QueuePending])
	assert.Equal(t, 1, counts[models.QueueInFlight])
	assert.Zero(t, counts[models.QueueFailed])
}
