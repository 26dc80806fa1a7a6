package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"github.com/stretchr/testify/require"
)

var (
	t0            = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	defaultBounds = threshold.Bounds{DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10}
)

const (
	ownCheckpost   int64 = 1
	otherCheckpost int64 = 2
	segment        int64 = 7
	ranger         int64 = 11
	plate                = "KA01AB1234"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeNet struct{ online atomic.Bool }

func (n *fakeNet) Online() bool { return n.online.Load() }

type fakeSender struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (s *fakeSender) Send(_ context.Context, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *fakeSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

// fakeClient is a scriptable client.Client. Unset hooks succeed with zero
// values.
type fakeClient struct {
	mu sync.Mutex

	loggedIn bool
	onTokens func(string)

	loginFn   func(rangerID int64, pin string) error
	resumeFn  func(token string) error
	pushFn    func(p *models.Passage) (*client.PushResult, error)
	listFn    func(segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.CachedEntry, error)
	matchFn   func(entryID, exitID int64) (*client.MatchResult, error)
	segmentFn func(segmentID int64) (threshold.Bounds, error)

	uploadKey, uploadURL string
	attachErr            error

	pushed     []string
	matchCalls [][2]int64
	attached   map[string]string
	resumed    string
	logouts    int
}

func (f *fakeClient) Close() error                   { return nil }
func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Login(_ context.Context, rangerID int64, pin string) error {
	if f.loginFn != nil {
		if err := f.loginFn(rangerID, pin); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.loggedIn = true
	cb := f.onTokens
	f.mu.Unlock()
	if cb != nil {
		cb("refresh-1")
	}
	return nil
}

func (f *fakeClient) Resume(_ context.Context, token string) error {
	f.mu.Lock()
	f.resumed = token
	f.mu.Unlock()
	if f.resumeFn != nil {
		return f.resumeFn(token)
	}
	f.mu.Lock()
	f.loggedIn = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = false
	f.logouts++
}

func (f *fakeClient) LoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeClient) OnTokens(fn func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTokens = fn
}

func (f *fakeClient) PushPassage(_ context.Context, p *models.Passage) (*client.PushResult, error) {
	f.mu.Lock()
	f.pushed = append(f.pushed, p.ClientID)
	f.mu.Unlock()
	if f.pushFn != nil {
		return f.pushFn(p)
	}
	return &client.PushResult{ServerID: 100}, nil
}

func (f *fakeClient) ListUnmatched(_ context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.CachedEntry, error) {
	if f.listFn != nil {
		return f.listFn(segmentID, excludeCheckpostID, since, limit)
	}
	return nil, nil
}

func (f *fakeClient) Match(_ context.Context, entryID, exitID int64) (*client.MatchResult, error) {
	f.mu.Lock()
	f.matchCalls = append(f.matchCalls, [2]int64{entryID, exitID})
	f.mu.Unlock()
	if f.matchFn != nil {
		return f.matchFn(entryID, exitID)
	}
	return nil, client.ErrConflict
}

func (f *fakeClient) GetSegment(_ context.Context, segmentID int64) (threshold.Bounds, error) {
	if f.segmentFn != nil {
		return f.segmentFn(segmentID)
	}
	return defaultBounds, nil
}

func (f *fakeClient) PhotoUploadURL(_ context.Context, clientID string) (string, string, error) {
	return f.uploadKey, f.uploadURL, nil
}

func (f *fakeClient) AttachPhoto(_ context.Context, clientID, key string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached == nil {
		f.attached = make(map[string]string)
	}
	f.attached[clientID] = key
	return nil
}

func (f *fakeClient) pushedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushed...)
}

// env is a device with a fresh database, a signed-in ranger and a clock
// fixed at t0.
type env struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	hub      *store.Hub
	clock    *fakeClock
	recorder *Recorder
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := setupDB(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.Metadata(db).SetJSON(context.Background(), metadata.KeyRangerID, ranger))

	clock := &fakeClock{now: t0}
	hub := store.NewHub()
	matcher := NewMatcher(rm, defaultBounds, clock)

	return &env{
		db:       db,
		rm:       rm,
		hub:      hub,
		clock:    clock,
		recorder: NewRecorder(db, rm, matcher, hub, clock, logging.Nop{}, ownCheckpost, segment),
	}
}

func (e *env) cacheRemote(t *testing.T, id int64, at time.Time) {
	t.Helper()
	require.NoError(t, e.rm.Cache(e.db).Upsert(context.Background(), &models.CachedEntry{
		ID:          id,
		Plate:       plate,
		VehicleType: common.VehicleCar,
		CheckpostID: otherCheckpost,
		SegmentID:   segment,
		RecordedAt:  at,
		FetchedAt:   at,
	}))
}

// record captures plate at the current clock time.
func (e *env) record(t *testing.T) (*models.Passage, *MatchOutcome) {
	t.Helper()
	p, out, err := e.recorder.Record(context.Background(), RecordInput{RawPlate: "ka 01-ab 1234", VehicleType: common.VehicleCar})
	require.NoError(t, err)
	return p, out
}
