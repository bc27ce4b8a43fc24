package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	"github.com/nemanja-m/wordfreq/internal/worker/core"
)

type workerService struct {
	executor core.TaskExecutor
	logger   logging.Logger
}

func NewWorkerService(executor core.TaskExecutor, logger logging.Logger) core.WorkerService {
	return &workerService{
		executor: executor,
		logger:   logger,
	}
}

func (w *workerService) RunTask(ctx context.Context, spec task.Spec) error {
	if err := spec.Validate(); err != nil {
		w.logger.Error("Rejected invalid task", "task_id", spec.ID.String(), "error", err)
		return &task.ExitError{Code: task.ExitCodeInvalid, Stderr: err.Error()}
	}

	w.logger.Info("Received task",
		"task_id", spec.ID.String(),
		"job_id", spec.JobID.String(),
		"type", string(spec.Type),
	)

	err := w.execute(ctx, spec)
	if err == nil {
		w.logger.Info("Task completed", "task_id", spec.ID.String())
		return nil
	}

	w.logger.Error("Task execution failed", "task_id", spec.ID.String(), "error", err)

	var exitErr *task.ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return &task.ExitError{Code: task.ExitCodeFailure, Stderr: err.Error()}
	}
}

func (w *workerService) execute(ctx context.Context, spec task.Spec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &task.ExitError{
				Code:   task.ExitCodePanic,
				Stderr: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	return w.executor.Execute(ctx, spec)
}
