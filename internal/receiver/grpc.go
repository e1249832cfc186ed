package receiver

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/fidde/patterntrie/internal/anomaly"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// GRPCReceiver handles OTLP gRPC log export requests.
type GRPCReceiver struct {
	collogspb.UnimplementedLogsServiceServer
	detectors *anomaly.Registry
	sink      EventSink
	server    *grpc.Server
	listener  net.Listener
	addr      string
}

// NewGRPCReceiver creates a new gRPC receiver bound to addr.
func NewGRPCReceiver(addr string, detectors *anomaly.Registry, sink EventSink) *GRPCReceiver {
	return &GRPCReceiver{
		detectors: detectors,
		sink:      sink,
		addr:      addr,
	}
}

// Start starts the gRPC server.
func (r *GRPCReceiver) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	r.listener = lis

	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, r)
	reflection.Register(r.server)

	log.Printf("gRPC server listening on %s", r.addr)
	return r.server.Serve(lis)
}

// Shutdown gracefully shuts down the gRPC server.
func (r *GRPCReceiver) Shutdown(ctx context.Context) error {
	if r.server != nil {
		r.server.GracefulStop()
	}
	return nil
}

// Export implements the LogsService Export RPC.
func (r *GRPCReceiver) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	if err := ingestExportRequest(ctx, r.detectors, r.sink, req); err != nil {
		return nil, fmt.Errorf("failed to ingest logs: %w", err)
	}

	return &collogspb.ExportLogsServiceResponse{
		PartialSuccess: &collogspb.ExportLogsPartialSuccess{
			RejectedLogRecords: 0,
		},
	}, nil
}
