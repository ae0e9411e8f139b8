package consensus

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/left-curve/grug/app"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/logging"
	"google.golang.org/grpc"
)

// Server wraps the app kernel behind the Handler interface, carrying its
// own component logger.
type Server struct {
	App    *app.App
	logger logging.Logger
	grpc   *grpc.Server
}

// New builds a Server instance with the logger and Prometheus metrics
// wired in.
func New(a *app.App) *Server {
	initPrometheusMetrics()
	return &Server{App: a, logger: logging.New("consensus")}
}

// Serve starts a gRPC listener carrying the hand-rolled ServiceDesc and
// the loggingInterceptor below, blocking until the listener errors or
// closes.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return grugerrors.New(grugerrors.ERR_HOST, "consensus: listen on %s", addr, err)
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.loggingInterceptor))
	s.grpc.RegisterService(&ServiceDesc, s)
	s.logger.Infof("listening on %s", addr)
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight requests before shutting the listener
// down.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// loggingInterceptor records a Prometheus observation and a structured log
// line per request.
func (s *Server) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	reqID := uuid.New().String()
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start).Seconds()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(info.FullMethod, outcome).Inc()
	requestSeconds.WithLabelValues(info.FullMethod).Observe(elapsed)

	if err != nil {
		s.logger.Warnf("[%s] %s failed: %v", reqID, info.FullMethod, err)
	} else {
		s.logger.Debugf("[%s] %s ok in %.3fs", reqID, info.FullMethod, elapsed)
	}
	return resp, err
}

func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*grugerrors.Error); ok {
		return grugerrors.ToGRPCStatus(ge)
	}
	return err
}
