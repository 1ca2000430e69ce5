package app

import (
	"fmt"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/broadside/internal/platform/timeouts"
)

// MatchHealthService is the health service name that tracks the driver.
const MatchHealthService = "arena.match"

// healthEndpoint serves gRPC health for the duration of a match. The
// overall status stays SERVING while the process is up; MatchHealthService
// reports whether rounds are still being played.
type healthEndpoint struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func newHealthEndpoint(listener net.Listener) *healthEndpoint {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(MatchHealthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &healthEndpoint{
		server:   grpcServer,
		health:   healthServer,
		listener: listener,
	}
}

// serve blocks until the server stops.
func (h *healthEndpoint) serve() error {
	log.Printf("arena health server listening at %v", h.listener.Addr())
	if err := h.server.Serve(h.listener); err != nil {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

func (h *healthEndpoint) matchRunning(running bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if running {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(MatchHealthService, status)
}

// shutdown drains the server, forcing it closed after HealthShutdown.
func (h *healthEndpoint) shutdown() {
	h.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		h.server.GracefulStop()
		close(stopped)
	}()
	timer := time.NewTimer(timeouts.HealthShutdown)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		log.Printf("arena health server did not drain in %v; forcing stop", timeouts.HealthShutdown)
		h.server.Stop()
	}
}
