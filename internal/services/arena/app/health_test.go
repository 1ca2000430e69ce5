package app

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthEndpointTracksMatch(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	endpoint := newHealthEndpoint(listener)
	served := make(chan error, 1)
	go func() { served <- endpoint.serve() }()

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)
	status := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := status(""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %v, want SERVING", got)
	}
	if got := status(MatchHealthService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("match status before start = %v, want NOT_SERVING", got)
	}
	endpoint.matchRunning(true)
	if got := status(MatchHealthService); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("match status while running = %v, want SERVING", got)
	}
	endpoint.matchRunning(false)
	if got := status(MatchHealthService); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("match status after finish = %v, want NOT_SERVING", got)
	}

	endpoint.shutdown()
	if err := <-served; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
