package grpc

import (
	"net"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "attendance"

type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func NewGrpc() *Server {
	server := &Server{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
	}

	healthpb.RegisterHealthServer(server.srv, server.health)
	server.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	server.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(server.srv)

	return server
}

func (v *Server) Listen() error {
	listener, err := net.Listen("tcp", viper.GetString("grpc_bind"))
	if err != nil {
		return err
	}

	return v.Serve(listener)
}

func (v *Server) Serve(listener net.Listener) error {
	return v.srv.Serve(listener)
}

// Stop reports NOT_SERVING to health checkers before draining the server.
func (v *Server) Stop() {
	v.health.Shutdown()
	v.srv.GracefulStop()
	log.Info().Msg("gRPC server stopped.")
}
