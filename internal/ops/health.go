// Package ops runs the operational gRPC endpoint used by orchestrators to
// probe the service.
package ops

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"linkcamp/internal/common"
)

const ServiceName = "linkcamp"

// Check probes one backing store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthServer serves grpc.health.v1 and mirrors the result of its checks.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	checks []Check
	log    *slog.Logger

	mu       sync.Mutex
	draining bool
}

func NewHealthServer(log *slog.Logger, checks ...Check) *HealthServer {
	hs := &HealthServer{
		server: grpc.NewServer(grpc.UnaryInterceptor(common.LoggingInterceptor(log))),
		health: health.NewServer(),
		checks: checks,
		log:    log,
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	reflection.Register(hs.server)
	hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Probe runs every check and updates the served status. The returned map
// holds "ok" or the error text per check.
func (hs *HealthServer) Probe(ctx context.Context) (bool, map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	healthy := true
	results := make(map[string]string, len(hs.checks))
	for _, c := range hs.checks {
		if err := c.Ping(ctx); err != nil {
			healthy = false
			results[c.Name] = err.Error()
			hs.log.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
			continue
		}
		results[c.Name] = "ok"
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.draining {
		return false, results
	}
	if healthy {
		hs.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy, results
}

func (hs *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	hs.health.SetServingStatus("", status)
	hs.health.SetServingStatus(ServiceName, status)
}

// Watch re-probes on every tick until ctx ends.
func (hs *HealthServer) Watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Probe(ctx)
		}
	}
}

func (hs *HealthServer) Serve(lis net.Listener) error {
	hs.log.Info("grpc health server listening", "addr", lis.Addr().String())
	return hs.server.Serve(lis)
}

// Shutdown reports NOT_SERVING and stops after in-flight calls finish.
func (hs *HealthServer) Shutdown() {
	hs.mu.Lock()
	hs.draining = true
	hs.mu.Unlock()
	hs.health.Shutdown()
	hs.server.GracefulStop()
}
