package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/services"
)

type fakeRangers struct {
	loginResp   *services.TokenPair
	loginErr    error
	refreshResp *services.TokenPair
	refreshErr  error
}

func (f *fakeRangers) Login(ctx context.Context, rangerID int64, pin string) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeRangers) RefreshToken(ctx context.Context, refresh string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}

type fakePassages struct {
	ingested  []*models.Passage
	ingestRes *services.IngestResult
	ingestErr error

	listArgs struct {
		segmentID, exclude int64
		since              time.Time
		limit              int
	}
	listOut []*models.Passage

	segment *models.Segment
	segErr  error

	attached struct {
		clientID    string
		checkpostID int64
		key         string
	}
	attachErr error
}

func (f *fakePassages) Ingest(ctx context.Context, p *models.Passage) (*services.IngestResult, error) {
	f.ingested = append(f.ingested, p)
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	if f.ingestRes != nil {
		return f.ingestRes, nil
	}
	p.ID = 1
	return &services.IngestResult{Status: services.IngestCreated, Passage: p}, nil
}

func (f *fakePassages) ListUnmatched(ctx context.Context, segmentID, exclude int64, since time.Time, limit int) ([]*models.Passage, error) {
	f.listArgs.segmentID, f.listArgs.exclude, f.listArgs.since, f.listArgs.limit = segmentID, exclude, since, limit
	return f.listOut, nil
}

func (f *fakePassages) GetSegment(ctx context.Context, id int64) (*models.Segment, error) {
	return f.segment, f.segErr
}

func (f *fakePassages) AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error {
	f.attached.clientID, f.attached.checkpostID, f.attached.key = clientID, checkpostID, key
	return f.attachErr
}

type fakeMatcher struct {
	out *models.MatchOutcome
	err error
}

func (f *fakeMatcher) Match(ctx context.Context, a, b int64) (*models.MatchOutcome, error) {
	return f.out, f.err
}

type fakePhotos struct {
	checkpostID int64
	err         error
}

func (f *fakePhotos) PresignUpload(ctx context.Context, checkpostID int64, clientID string) (string, string, error) {
	f.checkpostID = checkpostID
	if f.err != nil {
		return "", "", f.err
	}
	return "passages/" + clientID + ".jpg", "http://s3/put", nil
}

type fixture struct {
	rangers  *fakeRangers
	passages *fakePassages
	matcher  *fakeMatcher
	photos   *fakePhotos
}

func newServer(secret string) (*GRPCServer, *fixture) {
	f := &fixture{
		rangers:  &fakeRangers{},
		passages: &fakePassages{},
		matcher:  &fakeMatcher{},
		photos:   &fakePhotos{},
	}
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, f.rangers, f.passages, f.matcher, f.photos, secret), f
}
