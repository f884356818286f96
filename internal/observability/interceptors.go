// Package observability serves metrics and probes and instruments the gRPC
// health server.
package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"indic-speech-stream-service/internal/observability/metrics"
)

// healthPrefix marks probe traffic, which is logged at debug level only.
const healthPrefix = "/grpc.health.v1.Health/"

// UnaryServerInterceptor counts unary calls by method and status code.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observe(m, info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor counts streams (health Watch, reflection) when
// they end.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observe(m, info.FullMethod, "stream", start, err)
		return err
	}
}

func observe(m *metrics.Metrics, method, kind string, start time.Time, err error) {
	code := status.Code(err)
	m.RecordGRPCCall(method, code.String())

	level := zerolog.DebugLevel
	if code != codes.OK && code != codes.Canceled && !strings.HasPrefix(method, healthPrefix) {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Str("method", method).
		Str("kind", kind).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call finished")
}
