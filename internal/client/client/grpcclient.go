package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/models"
	"github.com/dmitrijs2005/checkpost/internal/common"
	pb "github.com/dmitrijs2005/checkpost/internal/proto"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	dialOpts    []grpc.DialOption
	conn        *grpc.ClientConn
	client      pb.CheckpostServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     func(string)

	// serializes refreshes so concurrent calls rotate the pair once
	refreshMu sync.Mutex
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	cb := s.onTokens
	s.mu.Unlock()

	if cb != nil {
		cb(refresh)
	}
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, _ := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	if rerr := s.refresh(ctx, access); rerr != nil {
		return err
	}

	// tokens refreshed, retrying with the new access token
	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// refresh rotates the token pair unless another call already did so since
// stale was read.
func (s *GRPCClient) refresh(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	access, refresh := s.tokens()
	if access != stale {
		return nil
	}
	if refresh == "" {
		return ErrNotLoggedIn
	}

	resp, err := s.client.RefreshToken(ctx, &pb.RefreshTokenRequest{RefreshToken: refresh})
	if err != nil {
		return err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// NewCheckpostClient connects to the server at endpointURL. Extra dial
// options are appended to the defaults (insecure transport, JSON codec,
// token interceptor).
func NewCheckpostClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, dialOpts: opts}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(pb.JSONCodec{})),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewCheckpostServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) OnTokens(fn func(string)) {
	s.mu.Lock()
	s.onTokens = fn
	s.mu.Unlock()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, rangerID int64, pin string) error {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{RangerId: rangerID, Pin: pin})
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Resume(ctx context.Context, refreshToken string) error {
	resp, err := s.client.RefreshToken(ctx, &pb.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Logout() {
	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()
}

func (s *GRPCClient) LoggedIn() bool {
	access, _ := s.tokens()
	return access != ""
}

func (s *GRPCClient) PushPassage(ctx context.Context, p *models.Passage) (*PushResult, error) {
	resp, err := s.client.PushPassage(ctx, &pb.PushPassageRequest{Passage: passageToPB(p)})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &PushResult{
		ServerID:  resp.PassageId,
		Duplicate: resp.Status == pb.PushStatusDuplicate,
		Match:     matchFromPB(resp.Match),
	}, nil
}

func (s *GRPCClient) ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.CachedEntry, error) {
	req := &pb.ListUnmatchedRequest{
		SegmentId:          segmentID,
		ExcludeCheckpostId: excludeCheckpostID,
		SinceMs:            since.UnixMilli(),
		Limit:              int32(limit),
	}
	resp, err := s.client.ListUnmatched(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	entries := make([]*models.CachedEntry, 0, len(resp.Passages))
	for _, p := range resp.Passages {
		entries = append(entries, &models.CachedEntry{
			ID:          p.Id,
			Plate:       p.Plate,
			VehicleType: common.VehicleType(p.VehicleType),
			CheckpostID: p.CheckpostId,
			SegmentID:   p.SegmentId,
			RecordedAt:  time.UnixMilli(p.RecordedAtMs).UTC(),
		})
	}
	return entries, nil
}

func (s *GRPCClient) Match(ctx context.Context, entryID, exitID int64) (*MatchResult, error) {
	resp, err := s.client.Match(ctx, &pb.MatchRequest{EntryPassageId: entryID, ExitPassageId: exitID})
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPair, err)
		}
		return nil, err
	}
	return matchFromPB(resp), nil
}

func (s *GRPCClient) GetSegment(ctx context.Context, segmentID int64) (threshold.Bounds, error) {
	resp, err := s.client.GetSegment(ctx, &pb.GetSegmentRequest{SegmentId: segmentID})
	if err != nil {
		return threshold.Bounds{}, s.mapError(err)
	}
	return threshold.Bounds{DistanceKm: resp.DistanceKm, MaxSpeedKmh: resp.MaxSpeedKmh, MinSpeedKmh: resp.MinSpeedKmh}, nil
}

func (s *GRPCClient) PhotoUploadURL(ctx context.Context, clientID string) (string, string, error) {
	resp, err := s.client.GetPhotoUploadURL(ctx, &pb.PhotoUploadURLRequest{ClientId: clientID})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.Key, resp.Url, nil
}

func (s *GRPCClient) AttachPhoto(ctx context.Context, clientID, key string) error {
	_, err := s.client.AttachPhoto(ctx, &pb.AttachPhotoRequest{ClientId: clientID, PhotoKey: key})
	return s.mapError(err)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrConflict
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func passageToPB(p *models.Passage) *pb.Passage {
	out := &pb.Passage{
		ClientId:     p.ClientID,
		Plate:        p.Plate,
		RawPlate:     p.RawPlate,
		VehicleType:  string(p.VehicleType),
		CheckpostId:  p.CheckpostID,
		SegmentId:    p.SegmentID,
		RecordedAtMs: p.RecordedAt.UnixMilli(),
		RangerId:     p.RangerID,
		PhotoKey:     p.PhotoKey,
		Source:       string(p.Source),
	}
	return out
}

func matchFromPB(m *pb.MatchResult) *MatchResult {
	if m == nil {
		return nil
	}
	res := &MatchResult{
		EntryID:        m.EntryId,
		ExitID:         m.ExitId,
		Plate:          m.Plate,
		SegmentID:      m.SegmentId,
		TravelMinutes:  m.TravelMinutes,
		AlertsResolved: int(m.AlertsResolved),
	}
	if v := m.Violation; v != nil {
		speed := math.Inf(1)
		if v.SpeedKmh != nil {
			speed = *v.SpeedKmh
		}
		res.Violation = &RemoteViolation{
			ID:               v.Id,
			Type:             common.ViolationType(v.Type),
			ThresholdMinutes: v.ThresholdMinutes,
			SpeedKmh:         speed,
		}
	}
	return res
}
