package server

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer serves grpc.health.v1 and reflection for orchestrators.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// ListenHealth binds addr and marks both the empty service and serviceName
// as SERVING. Nothing is served until Serve is called.
func ListenHealth(addr, serviceName string, logger *slog.Logger) (*HealthServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(gs)

	return &HealthServer{grpc: gs, health: hs, lis: lis, logger: logger}, nil
}

func (s *HealthServer) Addr() net.Addr { return s.lis.Addr() }

// Serve blocks until Stop.
func (s *HealthServer) Serve() error {
	s.logger.Info("gRPC health serving", "addr", s.lis.Addr().String())
	return s.grpc.Serve(s.lis)
}

// Stop flips every service to NOT_SERVING, then drains connections.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
