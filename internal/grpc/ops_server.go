// Package grpc serves the operational gRPC endpoint: standard health checks
// and server reflection.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type OpsServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	timeout  time.Duration
	stopOnce sync.Once
}

// NewOpsServer registers one health service name per check. The empty name
// reports overall health and is serving only while every check passes.
func NewOpsServer(checks map[string]Check) *OpsServer {
	server := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	s := &OpsServer{
		server:   server,
		health:   hs,
		checks:   checks,
		interval: 10 * time.Second,
		timeout:  2 * time.Second,
	}
	for name := range checks {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *OpsServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Watch runs the checks now and then on every interval until ctx is done.
func (s *OpsServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ticker.C:
			s.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *OpsServer) probe(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			slog.WarnContext(ctx, "health check failed", "check", name, "error", err)
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// GracefulStop marks everything not serving and drains open RPCs.
func (s *OpsServer) GracefulStop() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		s.server.GracefulStop()
	})
}
