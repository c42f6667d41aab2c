package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AcquisitionService is the health service name reported for the
// acquisition loop.
const AcquisitionService = "pulse.acquisition"

// Health publishes acquisition liveness over the standard gRPC health
// protocol so supervisors can probe the logger without parsing its output.
type Health struct {
	srv *health.Server
}

// NewHealth returns a Health in the NOT_SERVING state.
func NewHealth() *Health {
	h := &Health{srv: health.NewServer()}
	h.srv.SetServingStatus(AcquisitionService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// SetServing marks the acquisition loop as running (true) or stopped.
func (h *Health) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.srv.SetServingStatus(AcquisitionService, status)
	h.srv.SetServingStatus("", status)
}

// Check returns the current status of the acquisition service.
func (h *Health) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.srv.Check(ctx, &healthpb.HealthCheckRequest{Service: AcquisitionService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve exposes the health service on addr until ctx is cancelled.
func (h *Health) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return h.serve(ctx, lis)
}

func (h *Health) serve(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, h.srv)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		h.srv.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
