package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/proto"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

// WorkerClient talks to one worker's TaskRunner and health services.
type WorkerClient struct {
	addr   string
	conn   *grpc.ClientConn
	runner proto.TaskRunnerClient
	health healthpb.HealthClient
}

func NewWorkerClient(addr string, cfg config.ClusterConfig, opts ...grpc.DialOption) (*WorkerClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(
			keepalive.ClientParameters{
				Time:                cfg.KeepaliveTime,
				Timeout:             cfg.KeepaliveTimeout,
				PermitWithoutStream: true,
			},
		),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to worker %s: %w", addr, err)
	}

	return &WorkerClient{
		addr:   addr,
		conn:   conn,
		runner: proto.NewTaskRunnerClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *WorkerClient) Addr() string {
	return c.addr
}

// RunTask runs spec on the worker and blocks until it finished. Deadline and
// cancellation statuses are mapped back to the context errors.
func (c *WorkerClient) RunTask(ctx context.Context, spec task.Spec) error {
	req, err := proto.EncodeTask(spec)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	resp, err := c.runner.RunTask(ctx, req)
	if err != nil {
		switch status.Code(err) {
		case codes.DeadlineExceeded:
			return fmt.Errorf("worker %s: %w", c.addr, context.DeadlineExceeded)
		case codes.Canceled:
			return fmt.Errorf("worker %s: %w", c.addr, context.Canceled)
		default:
			return fmt.Errorf("worker %s: %w", c.addr, err)
		}
	}
	return proto.DecodeResult(resp)
}

// Check asks the worker whether its TaskRunner service is serving.
func (c *WorkerClient) Check(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: proto.TaskRunnerServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("worker %s is %s", c.addr, resp.GetStatus())
	}
	return nil
}

func (c *WorkerClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
