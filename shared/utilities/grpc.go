package utilities

import (
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// RegisterHealthServer registers the gRPC health check service.
func RegisterHealthServer(grpcServer *grpc.Server) {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
}

// ServeHealth starts a gRPC server on addr exposing only the health check
// service. Consul's gRPC checks probe this endpoint. The returned server
// should be stopped with GracefulStop on shutdown.
func ServeHealth(logger *zerolog.Logger, addr string) *grpc.Server {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to listen for health checks")
	}

	grpcServer := grpc.NewServer()
	RegisterHealthServer(grpcServer)

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error().Err(err).Msg("health server stopped")
		}
	}()

	return grpcServer
}
