// Package grpcapi exposes gRPC health and reflection so orchestrators can
// probe model readiness with standard tooling (grpc_health_probe, grpcurl).
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"indic-speech-stream-service/internal/observability"
	"indic-speech-stream-service/internal/observability/metrics"
)

// ServiceName is the health service name reported alongside the "" entry.
const ServiceName = "indic.asr.StreamService"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a gRPC server that starts NOT_SERVING until SetReady(true).
func NewServer(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{grpc: g, health: hs}
	s.SetReady(false)
	return s
}

// SetReady flips the health status of the service.
func (s *Server) SetReady(ready bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ready {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC health server")
	return s.grpc.Serve(lis)
}

// GracefulStop reports NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
