package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tasknest.org/internal/obs"
)

// GRPCServer exposes the standard gRPC health service, mirroring /readyz.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	probe  ReadyProbe
}

// NewGRPCServer wires the health service onto a fresh grpc.Server.
func NewGRPCServer(probe ReadyProbe) *GRPCServer {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	return &GRPCServer{server: srv, health: h, probe: probe}
}

// Server returns the underlying grpc.Server for Serve and GracefulStop.
func (g *GRPCServer) Server() *grpc.Server { return g.server }

// WatchReadiness polls the probe and keeps the health status current
// until ctx is cancelled.
func (g *GRPCServer) WatchReadiness(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	g.refresh(ctx)
	for {
		select {
		case <-ticker.C:
			g.refresh(ctx)
		case <-ctx.Done():
			g.health.Shutdown()
			return
		}
	}
}

func (g *GRPCServer) refresh(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := g.probe.Check(checkCtx); err != nil {
		obs.SetReady(false)
		g.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	obs.SetReady(true)
	g.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
}
