// Package grpc exposes the device-facing API: passage push, unmatched
// pull, reconciliation, segment lookup, photo presigning and ranger auth.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/logging"
	pb "github.com/dmitrijs2005/checkpost/internal/proto"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/services"
	"google.golang.org/grpc"
)

type rangerSvc interface {
	Login(ctx context.Context, rangerID int64, pin string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type passageSvc interface {
	Ingest(ctx context.Context, p *models.Passage) (*services.IngestResult, error)
	ListUnmatched(ctx context.Context, segmentID, excludeCheckpostID int64, since time.Time, limit int) ([]*models.Passage, error)
	GetSegment(ctx context.Context, id int64) (*models.Segment, error)
	AttachPhoto(ctx context.Context, clientID string, checkpostID int64, key string) error
}

type matcher interface {
	Match(ctx context.Context, a, b int64) (*models.MatchOutcome, error)
}

type photoSvc interface {
	PresignUpload(ctx context.Context, checkpostID int64, clientID string) (string, string, error)
}

type GRPCServer struct {
	pb.UnimplementedCheckpostServiceServer
	address    string
	rangers    rangerSvc
	passages   passageSvc
	reconciler matcher
	photos     photoSvc
	logger     logging.Logger
	jwtSecret  []byte
}

func NewGRPCServer(a string, l logging.Logger, rs rangerSvc, ps passageSvc, rc matcher, ph photoSvc, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		rangers:    rs,
		passages:   ps,
		reconciler: rc,
		photos:     ph,
		jwtSecret:  []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	// creates gRPC-server
	srv := grpc.NewServer(
		grpc.ForceServerCodec(pb.JSONCodec{}),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	)

	// registers service
	pb.RegisterCheckpostServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
