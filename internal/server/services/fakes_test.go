package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/checkposts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/passages"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/rangers"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/segments"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/violations"
)

// -------- in-memory store shared by the fake repositories --------

type memStore struct {
	mu         sync.Mutex
	nextID     int64
	segments   map[int64]*models.Segment
	checkposts map[int64]*models.Checkpost
	rangers    map[int64]*models.Ranger
	passages   map[int64]*models.Passage
	violations map[int64]*models.Violation     // by entry passage
	alerts     map[int64]*models.OverstayAlert // by entry passage
	tokens     map[string]*models.RefreshToken

	// (segment, plate) keys passed to LockPlate, and the repository calls
	// made after each, in order
	plateLocks []string
	calls      []string

	// error injection
	createPassageErr error
	lockErr          error
	lockPlateErr     error
	violationErr     error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:     100,
		segments:   map[int64]*models.Segment{},
		checkposts: map[int64]*models.Checkpost{},
		rangers:    map[int64]*models.Ranger{},
		passages:   map[int64]*models.Passage{},
		violations: map[int64]*models.Violation{},
		alerts:     map[int64]*models.OverstayAlert{},
		tokens:     map[string]*models.RefreshToken{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// seedNetwork creates segment 1 (50 km, 10..40 km/h) with checkposts
// 1 ("NTH") and 2 ("STH") and a ranger on each.
func (s *memStore) seedNetwork() {
	s.segments[1] = &models.Segment{ID: 1, Name: "Forest road", DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10}
	s.checkposts[1] = &models.Checkpost{ID: 1, Code: "NTH", Name: "North gate", SegmentID: 1}
	s.checkposts[2] = &models.Checkpost{ID: 2, Code: "STH", Name: "South gate", SegmentID: 1}
	s.segments[2] = &models.Segment{ID: 2, Name: "Ridge", DistanceKm: 10, MaxSpeedKmh: 30, MinSpeedKmh: 5}
	s.checkposts[3] = &models.Checkpost{ID: 3, Code: "RDG", Name: "Ridge gate", SegmentID: 2}
	s.rangers[11] = &models.Ranger{ID: 11, Name: "Asha", Phone: "+91 98450 01234", CheckpostID: 1}
	s.rangers[12] = &models.Ranger{ID: 12, Name: "Ravi", Phone: "+91 98450 05678", CheckpostID: 2}
}

func (s *memStore) addPassage(checkpostID int64, plate string, at time.Time) *models.Passage {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Passage{
		ID:          s.id(),
		ClientID:    fmt.Sprintf("00000000-0000-4000-8000-%012d", s.nextID),
		Plate:       plate,
		VehicleType: common.VehicleCar,
		CheckpostID: checkpostID,
		SegmentID:   s.checkposts[checkpostID].SegmentID,
		RecordedAt:  at,
		Source:      common.SourceApp,
	}
	s.passages[p.ID] = p
	return p
}

func (s *memStore) passage(id int64) models.Passage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.passages[id]
}

func clonePassage(p *models.Passage) *models.Passage {
	c := *p
	return &c
}

// -------- passages --------

type fakePassages struct {
	passages.Repository
	s *memStore
}

func (f *fakePassages) LockPlate(ctx context.Context, segmentID int64, plate string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.lockPlateErr != nil {
		return f.s.lockPlateErr
	}
	key := fmt.Sprintf("%d/%s", segmentID, plate)
	f.s.plateLocks = append(f.s.plateLocks, key)
	f.s.calls = append(f.s.calls, "lock "+key)
	return nil
}

func (f *fakePassages) Create(ctx context.Context, p *models.Passage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls = append(f.s.calls, "create")
	if f.s.createPassageErr != nil {
		return f.s.createPassageErr
	}
	for _, o := range f.s.passages {
		if o.ClientID == p.ClientID ||
			(o.CheckpostID == p.CheckpostID && o.Plate == p.Plate && o.RecordedAt.Equal(p.RecordedAt)) {
			return common.ErrDuplicate
		}
	}
	p.ID = f.s.id()
	p.CreatedAt = time.Now()
	f.s.passages[p.ID] = clonePassage(p)
	return nil
}

func (f *fakePassages) FindDuplicate(ctx context.Context, p *models.Passage) (*models.Passage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.passages {
		if o.ClientID == p.ClientID ||
			(o.CheckpostID == p.CheckpostID && o.Plate == p.Plate && o.RecordedAt.Equal(p.RecordedAt)) {
			return clonePassage(o), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakePassages) GetByID(ctx context.Context, id int64) (*models.Passage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.passages[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clonePassage(p), nil
}

func (f *fakePassages) LockPair(ctx context.Context, a, b int64) ([]*models.Passage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.lockErr != nil {
		return nil, f.s.lockErr
	}
	var out []*models.Passage
	for _, id := range []int64{min(a, b), max(a, b)} {
		if p, ok := f.s.passages[id]; ok {
			out = append(out, clonePassage(p))
		}
	}
	return out, nil
}

func (f *fakePassages) SetMatched(ctx context.Context, id, matchedID int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.passages[id]
	if !ok || p.MatchedPassageID != nil {
		return false, nil
	}
	p.MatchedPassageID = &matchedID
	return true, nil
}

func (f *fakePassages) FindCandidate(ctx context.Context, p *models.Passage) (*models.Passage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls = append(f.s.calls, "candidate")
	var best *models.Passage
	for _, o := range f.s.passages {
		if o.ID == p.ID || o.Plate != p.Plate || o.SegmentID != p.SegmentID ||
			o.CheckpostID == p.CheckpostID || o.MatchedPassageID != nil {
			continue
		}
		if best == nil || o.RecordedAt.After(best.RecordedAt) ||
			(o.RecordedAt.Equal(best.RecordedAt) && o.ID > best.ID) {
			best = o
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	return clonePassage(best), nil
}

func (f *fakePassages) ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.Passage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Passage
	for _, o := range f.s.passages {
		if o.SegmentID == segmentID && o.CheckpostID != excludeCheckpostID &&
			o.MatchedPassageID == nil && !o.RecordedAt.Before(since) {
			out = append(out, clonePassage(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePassages) AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, o := range f.s.passages {
		if o.ClientID == clientID && o.CheckpostID == checkpostID {
			o.PhotoKey = key
			return nil
		}
	}
	return common.ErrorNotFound
}

// -------- network --------

type fakeSegments struct {
	segments.Repository
	s *memStore
}

func (f *fakeSegments) Get(ctx context.Context, id int64) (*models.Segment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	seg, ok := f.s.segments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *seg
	return &c, nil
}

type fakeCheckposts struct {
	checkposts.Repository
	s *memStore
}

func (f *fakeCheckposts) Get(ctx context.Context, id int64) (*models.Checkpost, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.checkposts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cc := *c
	return &cc, nil
}

func (f *fakeCheckposts) GetByCode(ctx context.Context, code string) (*models.Checkpost, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.checkposts {
		if c.Code == code {
			cc := *c
			return &cc, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRangers struct {
	rangers.Repository
	s *memStore
}

func (f *fakeRangers) Create(ctx context.Context, r *models.Ranger) (*models.Ranger, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *r
	c.ID = f.s.id()
	f.s.rangers[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeRangers) Get(ctx context.Context, id int64) (*models.Ranger, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.rangers[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRangers) FindByPhoneSuffix(ctx context.Context, checkpostID int64, suffix string) (*models.Ranger, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.rangers {
		if r.CheckpostID == checkpostID && len(r.Phone) >= len(suffix) && r.Phone[len(r.Phone)-len(suffix):] == suffix {
			c := *r
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

// -------- verdicts --------

type fakeViolations struct {
	violations.Repository
	s *memStore
}

func (f *fakeViolations) Create(ctx context.Context, v *models.Violation) (*models.Violation, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if existing, ok := f.s.violations[v.EntryPassageID]; ok {
		c := *existing
		return &c, false, nil
	}
	c := *v
	c.ID = f.s.id()
	f.s.violations[v.EntryPassageID] = &c
	out := c
	return &out, true, nil
}

func (f *fakeViolations) GetByEntry(ctx context.Context, entryPassageID int64) (*models.Violation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.violationErr != nil {
		return nil, f.s.violationErr
	}
	v, ok := f.s.violations[entryPassageID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *v
	return &c, nil
}

type fakeAlerts struct {
	alerts.Repository
	s       *memStore
	overdue int64
	err     error
}

func (f *fakeAlerts) CreateOverdue(ctx context.Context, now time.Time) (int64, error) {
	return f.overdue, f.err
}

func (f *fakeAlerts) ResolveForEntry(ctx context.Context, entryPassageID, byPassageID int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.alerts[entryPassageID]
	if !ok || a.ResolvedAt != nil {
		return 0, nil
	}
	now := time.Now()
	a.ResolvedAt = &now
	a.ResolvedByPassageID = &byPassageID
	return 1, nil
}

func (f *fakeAlerts) ListOpen(ctx context.Context, limit int) ([]*models.OverstayAlert, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.OverstayAlert
	for _, a := range f.s.alerts {
		if a.ResolvedAt == nil {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// -------- tokens --------

type fakeTokens struct {
	refreshtokens.Repository
	s         *memStore
	createErr error
}

func (f *fakeTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := *t
	f.s.tokens[t.Token] = &c
	return nil
}

func (f *fakeTokens) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.s.tokens, token)
	return t, nil
}

func (f *fakeTokens) RevokeRanger(ctx context.Context, rangerID int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.tokens {
		if t.RangerID == rangerID {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for k, t := range f.s.tokens {
		if t.Expires.Before(now) {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

// -------- manager --------

type fakeRepoManager struct {
	repomanager.RepositoryManager
	s      *memStore
	alerts *fakeAlerts
	tokens *fakeTokens
}

func newFakeRepoManager(s *memStore) *fakeRepoManager {
	return &fakeRepoManager{
		s:      s,
		alerts: &fakeAlerts{s: s},
		tokens: &fakeTokens{s: s},
	}
}

func (m *fakeRepoManager) Segments(dbx.DBTX) segments.Repository     { return &fakeSegments{s: m.s} }
func (m *fakeRepoManager) Checkposts(dbx.DBTX) checkposts.Repository { return &fakeCheckposts{s: m.s} }
func (m *fakeRepoManager) Rangers(dbx.DBTX) rangers.Repository       { return &fakeRangers{s: m.s} }
func (m *fakeRepoManager) Passages(dbx.DBTX) passages.Repository     { return &fakePassages{s: m.s} }
func (m *fakeRepoManager) Violations(dbx.DBTX) violations.Repository { return &fakeViolations{s: m.s} }
func (m *fakeRepoManager) Alerts(dbx.DBTX) alerts.Repository         { return m.alerts }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.tokens
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
