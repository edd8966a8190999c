// Package forward streams report records to a remote collector over gRPC.
package forward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
)

// DefaultMethod is the client-streaming method records are pushed to.
const DefaultMethod = "/fleetreport.v1.Collector/Push"

var _ sink.Sink = (*Sink)(nil)

// Config - Sink config
type Config struct {
	Addr   string
	Method string
	// Token is sent as a bearer token with the stream
	Token string
	// Creds defaults to insecure transport credentials
	Creds       credentials.TransportCredentials
	DialOptions []grpc.DialOption
}

// Sink sends one google.protobuf.Struct per record on a single client stream. The collector
// answers with google.protobuf.Empty once the stream is closed.
type Sink struct {
	mu sync.Mutex

	cfg    Config
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc
	sent   int
}

// New creates a Sink. The connection is opened on the first write.
func New(cfg Config) *Sink {
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}
	if cfg.Creds == nil {
		cfg.Creds = insecure.NewCredentials()
	}

	return &Sink{cfg: cfg}
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStreamLocked(ctx); err != nil {
		return err
	}

	msg, err := structpb.NewStruct(rec.Project(project))
	if err != nil {
		return fmt.Errorf("structpb.NewStruct: %w", err)
	}

	if err := s.stream.SendMsg(msg); err != nil {
		return fmt.Errorf("SendMsg: %w", err)
	}

	s.sent++

	return nil
}

// Close half-closes the stream, waits for the collector's acknowledgement and closes the connection.
func (s *Sink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.stream != nil {
		if err := s.stream.CloseSend(); err != nil {
			errs = append(errs, fmt.Errorf("CloseSend: %w", err))
		}

		if err := s.stream.RecvMsg(&emptypb.Empty{}); err != nil && !errors.Is(err, io.EOF) {
			errs = append(errs, fmt.Errorf("RecvMsg: %w", err))
		}

		s.stream = nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("conn.Close: %w", err))
		}

		s.conn = nil
	}

	log.Printf("[INFO] forward: %d records sent to %s", s.sent, s.cfg.Addr)

	return errors.Join(errs...)
}

func (s *Sink) ensureStreamLocked(ctx context.Context) error {
	if s.stream != nil {
		return nil
	}

	if s.conn == nil {
		opts := append([]grpc.DialOption{grpc.WithTransportCredentials(s.cfg.Creds)}, s.cfg.DialOptions...)

		conn, err := grpc.NewClient(s.cfg.Addr, opts...)
		if err != nil {
			return fmt.Errorf("grpc.NewClient %s: %w", s.cfg.Addr, err)
		}

		s.conn = conn
	}

	// the stream outlives the first write's context
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if s.cfg.Token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+s.cfg.Token)
	}

	stream, err := s.conn.NewStream(streamCtx, &grpc.StreamDesc{StreamName: "Push", ClientStreams: true}, s.cfg.Method)
	if err != nil {
		cancel()
		return fmt.Errorf("NewStream %s: %w", s.cfg.Method, err)
	}

	s.stream, s.cancel = stream, cancel

	return nil
}

func project(v report.Value) any {
	return v.Label()
}
