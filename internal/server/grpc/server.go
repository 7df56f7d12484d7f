// Package grpc hosts the engine control service: remote UpdateDestination,
// SetFrequency and friends for a running sender process.
package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/emmett/wavelink/internal/app"
)

// Server wraps the gRPC server and the engine control service
type Server struct {
	grpcServer *grpc.Server
	port       int
}

// Config holds server configuration
type Config struct {
	Port int
}

// NewServer creates a new gRPC control server for the engine
func NewServer(cfg Config, engine *app.Engine) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(),
		port:       cfg.Port,
	}

	// Register services
	service := NewControlService(engine)
	RegisterEngineControlServer(s.grpcServer, service)

	return s
}

// Start starts the gRPC server and blocks until Stop
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	fmt.Printf("gRPC control server listening on :%d\n", s.port)
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// RegisterEngineControlServer is a placeholder until proto is generated
func RegisterEngineControlServer(s *grpc.Server, srv *ControlService) {
	// Will be replaced by generated code: wavelinkpb.RegisterEngineControlServer(s, srv)
}
