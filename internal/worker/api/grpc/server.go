package grpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/proto"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	"github.com/nemanja-m/wordfreq/internal/worker/core"
)

type Server struct {
	addr         string
	grpcServer   *grpc.Server
	healthServer *health.Server
	logger       logging.Logger
}

func NewServer(cfg config.ServerConfig, workerService core.WorkerService, logger logging.Logger) *Server {
	grpcServer := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             cfg.KeepaliveMinTime,
			PermitWithoutStream: true,
		}),
	)

	proto.RegisterTaskRunnerServer(grpcServer, NewTaskRunnerService(workerService, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(proto.TaskRunnerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		addr:         cfg.Addr,
		grpcServer:   grpcServer,
		healthServer: healthServer,
		logger:       logger,
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting worker gRPC server", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.healthServer.Shutdown()
	s.grpcServer.GracefulStop()
}

// TaskRunnerService adapts a WorkerService to the TaskRunner gRPC API.
type TaskRunnerService struct {
	workerService core.WorkerService
	logger        logging.Logger
}

func NewTaskRunnerService(workerService core.WorkerService, logger logging.Logger) *TaskRunnerService {
	return &TaskRunnerService{
		workerService: workerService,
		logger:        logger,
	}
}

func (s *TaskRunnerService) RunTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spec, err := proto.DecodeTask(req)
	if err != nil {
		s.logger.Error("Invalid task assignment", "error", err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	err = s.workerService.RunTask(ctx, spec)

	var exitErr *task.ExitError
	switch {
	case err == nil:
		return proto.EncodeResult(nil), nil
	case errors.As(err, &exitErr):
		return proto.EncodeResult(exitErr), nil
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}
