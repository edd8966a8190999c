package forward

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
)

// collector accepts any client stream of Structs and remembers what it got.
type collector struct {
	mu     sync.Mutex
	method string
	auth   []string
	msgs   []*structpb.Struct
}

func (c *collector) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	md, _ := metadata.FromIncomingContext(stream.Context())

	c.mu.Lock()
	c.method = method
	c.auth = md.Get("authorization")
	c.mu.Unlock()

	for {
		msg := &structpb.Struct{}
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return stream.SendMsg(&emptypb.Empty{})
		}
		if err != nil {
			return status.Errorf(codes.Internal, "recv: %s", err)
		}

		c.mu.Lock()
		c.msgs = append(c.msgs, msg)
		c.mu.Unlock()
	}
}

func startCollector(t *testing.T) (*collector, grpc.DialOption) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	c := &collector{}

	srv := grpc.NewServer(grpc.UnknownServiceHandler(c.handle))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})

	return c, dialer
}

// TestSink_StreamsRecords verifies that every record arrives as one Struct with labels and the bearer token.
func TestSink_StreamsRecords(t *testing.T) {
	t.Parallel()

	c, dialer := startCollector(t)
	ctx := context.Background()

	s := New(Config{Addr: "passthrough:///bufnet", Token: "secret", DialOptions: []grpc.DialOption{dialer}})

	for _, name := range []string{"orders", "billing"} {
		rec, err := report.FromPairs([]report.Field{
			{Key: "name", Value: report.String(name)},
			{Key: "electable", Value: report.Int(3)},
			{Key: "Period", Value: report.Enum("WEEKS_1", "P1W")},
		})
		require.NoError(t, err)
		require.NoError(t, s.Write(ctx, rec))
	}

	require.NoError(t, s.Close(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()

	assert.Equal(t, DefaultMethod, c.method)
	assert.Equal(t, []string{"Bearer secret"}, c.auth)
	require.Len(t, c.msgs, 2)

	m := c.msgs[1].AsMap()
	assert.Equal(t, "billing", m["name"])
	assert.InDelta(t, 3.0, m["electable"], 0.0001)
	assert.Equal(t, "P1W", m["Period"])
}

// TestSink_CloseWithoutWrites verifies that an unused sink closes cleanly.
func TestSink_CloseWithoutWrites(t *testing.T) {
	t.Parallel()

	require.NoError(t, New(Config{Addr: "passthrough:///unused"}).Close(context.Background()))
}
