package workers

import (
	"context"
	"dot-catcher/contract"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var _ contract.Worker = (*HealthServerWorker)(nil)

// HealthServerWorker exposes grpc.health.v1 for orchestrators probing the bridge.
// It reports SERVING while running and NOT_SERVING on shutdown.
type HealthServerWorker struct {
	log     *slog.Logger
	address string
}

func NewHealthServerWorker(log *slog.Logger, address string) *HealthServerWorker {
	return &HealthServerWorker{log: log, address: address}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", w.address)
		if err := s.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		healthServer.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errChan:
		s.Stop()
		return err
	}
}
