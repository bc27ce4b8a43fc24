// Package proto defines the TaskRunner gRPC service that workers expose to
// the coordinator. Messages are google.protobuf.Struct values, so the service
// needs no generated code.
package proto

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/wordfreq/internal/shared/task"
)

const (
	TaskRunnerServiceName = "wordfreq.worker.v1.TaskRunner"

	runTaskFullMethod = "/" + TaskRunnerServiceName + "/RunTask"
)

// TaskRunnerServer is the server API for the TaskRunner service.
type TaskRunnerServer interface {
	RunTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// TaskRunnerClient is the client API for the TaskRunner service.
type TaskRunnerClient interface {
	RunTask(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type taskRunnerClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskRunnerClient(cc grpc.ClientConnInterface) TaskRunnerClient {
	return &taskRunnerClient{cc: cc}
}

func (c *taskRunnerClient) RunTask(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runTaskFullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterTaskRunnerServer(s grpc.ServiceRegistrar, srv TaskRunnerServer) {
	s.RegisterService(&TaskRunnerServiceDesc, srv)
}

func runTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskRunnerServer).RunTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: runTaskFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TaskRunnerServer).RunTask(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var TaskRunnerServiceDesc = grpc.ServiceDesc{
	ServiceName: TaskRunnerServiceName,
	HandlerType: (*TaskRunnerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunTask",
			Handler:    runTaskHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wordfreq/worker/v1/task_runner.proto",
}

// EncodeTask converts a task spec to its wire form.
func EncodeTask(spec task.Spec) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"task_id": spec.ID.String(),
		"job_id":  spec.JobID.String(),
		"type":    string(spec.Type),
		"input":   spec.Input,
		"output":  spec.Output,
	})
}

// DecodeTask parses the wire form of a task spec.
func DecodeTask(msg *structpb.Struct) (task.Spec, error) {
	fields := msg.GetFields()
	id, err := uuid.Parse(fields["task_id"].GetStringValue())
	if err != nil {
		return task.Spec{}, fmt.Errorf("invalid task_id: %w", err)
	}
	jobID, err := uuid.Parse(fields["job_id"].GetStringValue())
	if err != nil {
		return task.Spec{}, fmt.Errorf("invalid job_id: %w", err)
	}
	spec := task.Spec{
		ID:     id,
		JobID:  jobID,
		Type:   task.Type(fields["type"].GetStringValue()),
		Input:  fields["input"].GetStringValue(),
		Output: fields["output"].GetStringValue(),
	}
	return spec, spec.Validate()
}

// EncodeResult converts the outcome of a task to its wire form. A nil
// exitErr means success.
func EncodeResult(exitErr *task.ExitError) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"ok": structpb.NewBoolValue(exitErr == nil),
	}
	if exitErr != nil {
		fields["exit_code"] = structpb.NewNumberValue(float64(exitErr.Code))
		fields["stderr"] = structpb.NewStringValue(exitErr.Stderr)
	}
	return &structpb.Struct{Fields: fields}
}

// DecodeResult parses the wire form of a task outcome. It returns nil for a
// successful task and a *task.ExitError otherwise.
func DecodeResult(msg *structpb.Struct) error {
	fields := msg.GetFields()
	if fields["ok"].GetBoolValue() {
		return nil
	}
	return &task.ExitError{
		Code:   int(fields["exit_code"].GetNumberValue()),
		Stderr: fields["stderr"].GetStringValue(),
	}
}
