package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "checkpost.v1.CheckpostService"

const (
	MethodPing           = "/" + ServiceName + "/Ping"
	MethodLogin          = "/" + ServiceName + "/Login"
	MethodRefreshToken   = "/" + ServiceName + "/RefreshToken"
	MethodPushPassage    = "/" + ServiceName + "/PushPassage"
	MethodListUnmatched  = "/" + ServiceName + "/ListUnmatched"
	MethodMatch          = "/" + ServiceName + "/Match"
	MethodGetSegment     = "/" + ServiceName + "/GetSegment"
	MethodPhotoUploadURL = "/" + ServiceName + "/GetPhotoUploadURL"
	MethodAttachPhoto    = "/" + ServiceName + "/AttachPhoto"
)

// CheckpostServiceServer is implemented by the server transport.
type CheckpostServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	PushPassage(context.Context, *PushPassageRequest) (*PushPassageResponse, error)
	ListUnmatched(context.Context, *ListUnmatchedRequest) (*ListUnmatchedResponse, error)
	Match(context.Context, *MatchRequest) (*MatchResult, error)
	GetSegment(context.Context, *GetSegmentRequest) (*Segment, error)
	GetPhotoUploadURL(context.Context, *PhotoUploadURLRequest) (*PhotoUploadURLResponse, error)
	AttachPhoto(context.Context, *AttachPhotoRequest) (*AttachPhotoResponse, error)
}

// UnimplementedCheckpostServiceServer can be embedded for forward compatibility.
type UnimplementedCheckpostServiceServer struct{}

func (UnimplementedCheckpostServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedCheckpostServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedCheckpostServiceServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedCheckpostServiceServer) PushPassage(context.Context, *PushPassageRequest) (*PushPassageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PushPassage not implemented")
}
func (UnimplementedCheckpostServiceServer) ListUnmatched(context.Context, *ListUnmatchedRequest) (*ListUnmatchedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUnmatched not implemented")
}
func (UnimplementedCheckpostServiceServer) Match(context.Context, *MatchRequest) (*MatchResult, error) {
	return nil, status.Error(codes.Unimplemented, "method Match not implemented")
}
func (UnimplementedCheckpostServiceServer) GetSegment(context.Context, *GetSegmentRequest) (*Segment, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSegment not implemented")
}
func (UnimplementedCheckpostServiceServer) GetPhotoUploadURL(context.Context, *PhotoUploadURLRequest) (*PhotoUploadURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPhotoUploadURL not implemented")
}
func (UnimplementedCheckpostServiceServer) AttachPhoto(context.Context, *AttachPhotoRequest) (*AttachPhotoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AttachPhoto not implemented")
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(CheckpostServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CheckpostServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CheckpostServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes CheckpostService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckpostServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(MethodPing, CheckpostServiceServer.Ping)},
		{MethodName: "Login", Handler: unary(MethodLogin, CheckpostServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unary(MethodRefreshToken, CheckpostServiceServer.RefreshToken)},
		{MethodName: "PushPassage", Handler: unary(MethodPushPassage, CheckpostServiceServer.PushPassage)},
		{MethodName: "ListUnmatched", Handler: unary(MethodListUnmatched, CheckpostServiceServer.ListUnmatched)},
		{MethodName: "Match", Handler: unary(MethodMatch, CheckpostServiceServer.Match)},
		{MethodName: "GetSegment", Handler: unary(MethodGetSegment, CheckpostServiceServer.GetSegment)},
		{MethodName: "GetPhotoUploadURL", Handler: unary(MethodPhotoUploadURL, CheckpostServiceServer.GetPhotoUploadURL)},
		{MethodName: "AttachPhoto", Handler: unary(MethodAttachPhoto, CheckpostServiceServer.AttachPhoto)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "checkpost/v1/checkpost.proto",
}

// RegisterCheckpostServiceServer registers srv on s.
func RegisterCheckpostServiceServer(s grpc.ServiceRegistrar, srv CheckpostServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// CheckpostServiceClient is the typed client API.
type CheckpostServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	PushPassage(ctx context.Context, in *PushPassageRequest, opts ...grpc.CallOption) (*PushPassageResponse, error)
	ListUnmatched(ctx context.Context, in *ListUnmatchedRequest, opts ...grpc.CallOption) (*ListUnmatchedResponse, error)
	Match(ctx context.Context, in *MatchRequest, opts ...grpc.CallOption) (*MatchResult, error)
	GetSegment(ctx context.Context, in *GetSegmentRequest, opts ...grpc.CallOption) (*Segment, error)
	GetPhotoUploadURL(ctx context.Context, in *PhotoUploadURLRequest, opts ...grpc.CallOption) (*PhotoUploadURLResponse, error)
	AttachPhoto(ctx context.Context, in *AttachPhotoRequest, opts ...grpc.CallOption) (*AttachPhotoResponse, error)
}

type checkpostServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCheckpostServiceClient binds a client to a connection. The connection
// must use JSONCodec (see grpc.ForceCodec).
func NewCheckpostServiceClient(cc grpc.ClientConnInterface) CheckpostServiceClient {
	return &checkpostServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkpostServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *checkpostServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *checkpostServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *checkpostServiceClient) PushPassage(ctx context.Context, in *PushPassageRequest, opts ...grpc.CallOption) (*PushPassageResponse, error) {
	return invoke[PushPassageResponse](ctx, c.cc, MethodPushPassage, in, opts)
}

func (c *checkpostServiceClient) ListUnmatched(ctx context.Context, in *ListUnmatchedRequest, opts ...grpc.CallOption) (*ListUnmatchedResponse, error) {
	return invoke[ListUnmatchedResponse](ctx, c.cc, MethodListUnmatched, in, opts)
}

func (c *checkpostServiceClient) Match(ctx context.Context, in *MatchRequest, opts ...grpc.CallOption) (*MatchResult, error) {
	return invoke[MatchResult](ctx, c.cc, MethodMatch, in, opts)
}

func (c *checkpostServiceClient) GetSegment(ctx context.Context, in *GetSegmentRequest, opts ...grpc.CallOption) (*Segment, error) {
	return invoke[Segment](ctx, c.cc, MethodGetSegment, in, opts)
}

func (c *checkpostServiceClient) GetPhotoUploadURL(ctx context.Context, in *PhotoUploadURLRequest, opts ...grpc.CallOption) (*PhotoUploadURLResponse, error) {
	return invoke[PhotoUploadURLResponse](ctx, c.cc, MethodPhotoUploadURL, in, opts)
}

func (c *checkpostServiceClient) AttachPhoto(ctx context.Context, in *AttachPhotoRequest, opts ...grpc.CallOption) (*AttachPhotoResponse, error) {
	return invoke[AttachPhotoResponse](ctx, c.cc, MethodAttachPhoto, in, opts)
}
