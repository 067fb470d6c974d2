package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

// HealthService is the gRPC health service name reported for the realm API.
const HealthService = "realm.v1.Auth"

// HealthReporter mirrors readiness into a gRPC health server and the realm_ready gauge.
type HealthReporter struct {
	probe  readinessChecker
	server *health.Server
	logger zerolog.Logger
}

func NewHealthReporter(probe readinessChecker) *HealthReporter {
	if probe == nil {
		probe = ReadyProbe{}
	}
	return &HealthReporter{
		probe:  probe,
		server: health.NewServer(),
		logger: obs.WithComponent("httpapi"),
	}
}

// Server exposes the underlying health server.
func (h *HealthReporter) Server() *health.Server { return h.server }

// Check runs the probe once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) error {
	err := h.probe.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn().Err(err).Msg("readiness check failed")
	}
	obs.SetReady(err == nil)
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(HealthService, status)
	return err
}

// Run checks readiness every interval until ctx is done, then marks everything not serving.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	_ = h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			_ = h.Check(ctx)
		}
	}
}

// NewGRPCServer returns a gRPC server exposing the health service.
func NewGRPCServer(h *HealthReporter, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, h.Server())
	return srv
}
