package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	pb "github.com/dmitrijs2005/checkpost/internal/proto"
	"github.com/dmitrijs2005/checkpost/internal/server/auth"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	srv, _ := newServer("secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()
	srv, _ := newServer("secret")
	srv.address = "127.0.0.1:99999"
	require.Error(t, srv.Run(context.Background()))
}

// TestServe_RoundTrip drives the service through a real client connection
// using the JSON codec.
func TestServe_RoundTrip(t *testing.T) {
	srv, f := newServer("secret")
	f.matcher.out = &models.MatchOutcome{EntryID: 1, ExitID: 2, Plate: "KA01AB1234", SegmentID: 1, TravelMinutes: 120}

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(pb.JSONCodec{})),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := pb.NewCheckpostServiceClient(conn)

	ping, err := client.Ping(ctx, &pb.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", ping.Status)

	_, err = client.Match(ctx, &pb.MatchRequest{EntryPassageId: 1, ExitPassageId: 2})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := auth.GenerateToken(ranger7, []byte("secret"), time.Hour)
	require.NoError(t, err)
	actx := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)

	res, err := client.Match(actx, &pb.MatchRequest{EntryPassageId: 1, ExitPassageId: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.ExitId)
	assert.Equal(t, 120.0, res.TravelMinutes)
	assert.Nil(t, res.Violation)
}
