package grpc

import (
	"context"

	"github.com/dmitrijs2005/checkpost/internal/common"
	pb "github.com/dmitrijs2005/checkpost/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {
	tokens, err := s.rangers.Login(ctx, req.RangerId, req.Pin)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "ranger_id", req.RangerId, "err", err)
		return nil, toStatus(err)
	}
	s.logger.Info(ctx, "ranger logged in", "ranger_id", req.RangerId)
	return &pb.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshTokenRequest) (*pb.RefreshTokenResponse, error) {
	tokens, err := s.rangers.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

// PushPassage ingests one passage recorded at the caller's checkpost.
func (s *GRPCServer) PushPassage(ctx context.Context, req *pb.PushPassageRequest) (*pb.PushPassageResponse, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	if req.Passage == nil {
		return nil, status.Error(codes.InvalidArgument, "passage is required")
	}

	p := passageFromPB(req.Passage)
	if p.CheckpostID == 0 {
		p.CheckpostID = id.CheckpostID
	}
	if p.CheckpostID != id.CheckpostID {
		return nil, toStatus(common.ErrForbidden)
	}
	if p.Source != common.SourceSMS {
		p.Source = common.SourceApp
	}
	rangerID := id.RangerID
	p.RangerID = &rangerID

	res, err := s.passages.Ingest(ctx, p)
	if err != nil {
		if status.Code(toStatus(err)) == codes.Internal {
			s.logger.Error(ctx, "push passage failed", "client_id", p.ClientID, "err", err)
		}
		return nil, toStatus(err)
	}

	return &pb.PushPassageResponse{
		Status:    res.Status,
		PassageId: res.Passage.ID,
		Match:     matchToPB(res.Match),
	}, nil
}

// ListUnmatched serves unmatched passages of a segment for device-side
// matching. The caller's own checkpost is excluded unless another is named.
func (s *GRPCServer) ListUnmatched(ctx context.Context, req *pb.ListUnmatchedRequest) (*pb.ListUnmatchedResponse, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	if req.SegmentId == 0 {
		return nil, status.Error(codes.InvalidArgument, "segment_id is required")
	}
	exclude := req.ExcludeCheckpostId
	if exclude == 0 {
		exclude = id.CheckpostID
	}

	items, err := s.passages.ListUnmatched(ctx, req.SegmentId, exclude, msToTime(req.SinceMs), int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*pb.Passage, 0, len(items))
	for _, p := range items {
		out = append(out, passageToPB(p))
	}
	return &pb.ListUnmatchedResponse{Passages: out}, nil
}

// Match asks the reconciler to pair two stored passages.
func (s *GRPCServer) Match(ctx context.Context, req *pb.MatchRequest) (*pb.MatchResult, error) {
	out, err := s.reconciler.Match(ctx, req.EntryPassageId, req.ExitPassageId)
	if err != nil {
		return nil, toStatus(err)
	}
	return matchToPB(out), nil
}

func (s *GRPCServer) GetSegment(ctx context.Context, req *pb.GetSegmentRequest) (*pb.Segment, error) {
	seg, err := s.passages.GetSegment(ctx, req.SegmentId)
	if err != nil {
		return nil, toStatus(err)
	}
	return segmentToPB(seg), nil
}

func (s *GRPCServer) GetPhotoUploadURL(ctx context.Context, req *pb.PhotoUploadURLRequest) (*pb.PhotoUploadURLResponse, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	key, url, err := s.photos.PresignUpload(ctx, id.CheckpostID, req.ClientId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.PhotoUploadURLResponse{Key: key, Url: url}, nil
}

func (s *GRPCServer) AttachPhoto(ctx context.Context, req *pb.AttachPhotoRequest) (*pb.AttachPhotoResponse, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	if err := s.passages.AttachPhoto(ctx, req.ClientId, id.CheckpostID, req.PhotoKey); err != nil {
		return nil, toStatus(err)
	}
	return &pb.AttachPhotoResponse{}, nil
}
